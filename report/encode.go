package report

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
)

// Encode 把报表序列化为 gzip 压缩的 JSON-lines 表格工件。
// encoding/json 对 map 键排序输出，同一报表总是产出逐位相同的工件；
// 数值列在 Row.Set 中已折叠为 float64，解码往返无损。
func Encode(r Report) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	for _, row := range r {
		raw, err := json.Marshal(row)
		if err != nil {
			return nil, fmt.Errorf("marshal report row: %w", err)
		}
		if _, err := zw.Write(append(raw, '\n')); err != nil {
			return nil, fmt.Errorf("write report row: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close report artifact: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode 从 gzip JSON-lines 工件还原报表。
func Decode(raw []byte) (Report, error) {
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("open report artifact: %w", err)
	}
	defer zr.Close()

	var out Report
	scanner := bufio.NewScanner(zr)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var row Row
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, fmt.Errorf("unmarshal report row: %w", err)
		}
		out = append(out, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read report artifact: %w", err)
	}
	return out, nil
}
