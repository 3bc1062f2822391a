// Package feast 提供基于 Feast 在线存储的特征来源：
// 按节点名批量取回特征向量，组装为可直接喂给特征归一化器的带行名矩阵。
//
// 使用官方 SDK (github.com/feast-dev/feast/sdk/go) 的 gRPC 客户端。
// 典型用法是在构造评估调用前抓取一次，把结果作为 LabeledMatrix
// 特征说明传入：行名对齐由归一化器完成，节点顺序无需与图一致。
package feast

import (
	"context"
	"fmt"

	feastsdk "github.com/feast-dev/feast/sdk/go"
	feasttypes "github.com/feast-dev/feast/sdk/go/protos/feast/types"
	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/grapheval/core"
	"github.com/rushteam/grapheval/feature"
)

// Source 是 feature.Source 的 Feast 实现。
type Source struct {
	client  *feastsdk.GrpcClient
	project string
	// entityName 是图节点名对应的 Feast 实体字段名。
	entityName string
	// featureRefs 是要抓取的特征引用，顺序即结果矩阵的列序。
	featureRefs []string
}

// NewSource 建立到 Feast Feature Server 的 gRPC 连接。
func NewSource(host string, port int, project, entityName string, featureRefs []string) (*Source, error) {
	if port == 0 {
		port = 6565
	}
	if len(featureRefs) == 0 {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeConfiguration,
			"at least one feature reference must be provided to build a feast feature source")
	}
	client, err := feastsdk.NewGrpcClient(host, port)
	if err != nil {
		return nil, fmt.Errorf("connect feast %s:%d: %w", host, port, err)
	}
	return &Source{
		client:      client,
		project:     project,
		entityName:  entityName,
		featureRefs: featureRefs,
	}, nil
}

func (s *Source) Name() string { return "feast" }

// Fetch 为每个实体名取回一行特征。
// 任何实体缺失任何特征都是硬错误：静默补零会让特征矩阵
// 与图基数静默错位的问题更难定位。
func (s *Source) Fetch(ctx context.Context, entityNames []string) (feature.LabeledMatrix, error) {
	entities := make([]feastsdk.Row, len(entityNames))
	for i, name := range entityNames {
		entities[i] = feastsdk.Row{s.entityName: feastsdk.StrVal(name)}
	}

	resp, err := s.client.GetOnlineFeatures(ctx, &feastsdk.OnlineFeaturesRequest{
		Features: s.featureRefs,
		Entities: entities,
		Project:  s.project,
	})
	if err != nil {
		return feature.LabeledMatrix{}, fmt.Errorf("feast get online features: %w", err)
	}

	rows := resp.Rows()
	if len(rows) != len(entityNames) {
		return feature.LabeledMatrix{}, core.NewDomainError(core.ModuleFeature,
			core.ErrorCodeFeatureAlignment,
			fmt.Sprintf("feast returned %d rows for %d requested entities",
				len(rows), len(entityNames)))
	}

	values := mat.NewDense(len(entityNames), len(s.featureRefs), nil)
	for i, row := range rows {
		for j, ref := range s.featureRefs {
			value, ok := row[ref]
			if !ok {
				return feature.LabeledMatrix{}, core.NewDomainError(core.ModuleFeature,
					core.ErrorCodeFeatureAlignment,
					fmt.Sprintf("feast did not return the feature %q for entity %q",
						ref, entityNames[i]))
			}
			values.Set(i, j, scalarOf(value))
		}
	}

	return feature.LabeledMatrix{
		Rows:   append([]string(nil), entityNames...),
		Values: values,
	}, nil
}

func (s *Source) Close() error {
	s.client = nil
	return nil
}

// scalarOf 把 SDK 的特征值折叠为 float64，非数值类型降级为 0。
func scalarOf(value *feasttypes.Value) float64 {
	switch v := value.GetVal().(type) {
	case *feasttypes.Value_DoubleVal:
		return v.DoubleVal
	case *feasttypes.Value_FloatVal:
		return float64(v.FloatVal)
	case *feasttypes.Value_Int64Val:
		return float64(v.Int64Val)
	case *feasttypes.Value_Int32Val:
		return float64(v.Int32Val)
	case *feasttypes.Value_BoolVal:
		if v.BoolVal {
			return 1
		}
		return 0
	}
	return 0
}

var _ feature.Source = (*Source)(nil)
