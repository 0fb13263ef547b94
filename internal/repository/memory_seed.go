package repository

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"owl-history/internal/domain"

	"github.com/google/uuid"
)

// MemorySeed DB_ENABLED=false 时内存 repo 的初始数据（JSON 文件）
//
//	{
//	  "nodes":    [{"nodeid": 1, "tagname": "TT-101", "unit": "°C"}],
//	  "readings": [{"nodeid": 1, "time": "2024-03-01T08:00:00Z", "valdouble": 21.5}]
//	}
//
// 字段名与 nodes / nodes_history 列名一致
type MemorySeed struct {
	Nodes    []seedNode    `json:"nodes"`
	Readings []seedReading `json:"readings"`
}

type seedNode struct {
	NodeID      int64         `json:"nodeid"`
	TagName     string        `json:"tagname"`
	Description *string       `json:"description"`
	Unit        *string       `json:"unit"`
	AppID       uuid.NullUUID `json:"appid"`
}

type seedReading struct {
	NodeID     int64         `json:"nodeid"`
	Time       *time.Time    `json:"time"`
	ActualTime *time.Time    `json:"actualtime"`
	ValDouble  *float64      `json:"valdouble"`
	ValInt     *int64        `json:"valint"`
	ValUint    *int64        `json:"valuint"`
	ValBool    *bool         `json:"valbool"`
	ValString  *string       `json:"valstring"`
	Quality    *int64        `json:"quality"`
	RecordType *string       `json:"recordtype"`
	AppID      uuid.NullUUID `json:"appid"`
}

// LoadMemorySeed 解析种子数据并写入内存 repo，返回写入的节点数和读数数
// 时间统一换算成 UTC，与 Postgres TIMESTAMP 列的存储约定一致
func LoadMemorySeed(repo *MemoryNodesRepository, r io.Reader) (int, int, error) {
	var seed MemorySeed
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&seed); err != nil {
		return 0, 0, fmt.Errorf("failed to decode memory seed: %w", err)
	}

	for i, sr := range seed.Readings {
		if sr.Time == nil {
			return 0, 0, fmt.Errorf("memory seed reading %d (nodeid %d): time is required", i, sr.NodeID)
		}
	}

	for _, sn := range seed.Nodes {
		repo.PutNode(domain.Node{
			NodeID:      sn.NodeID,
			TagName:     sn.TagName,
			Description: sn.Description,
			Unit:        sn.Unit,
			AppID:       sn.AppID,
		})
	}
	for _, sr := range seed.Readings {
		reading := domain.Reading{
			NodeID:       sr.NodeID,
			RecordedTime: sr.Time.UTC(),
			ValDouble:    sr.ValDouble,
			ValInt:       sr.ValInt,
			ValUint:      sr.ValUint,
			ValBool:      sr.ValBool,
			ValString:    sr.ValString,
			Quality:      sr.Quality,
			RecordType:   sr.RecordType,
			AppID:        sr.AppID,
		}
		if sr.ActualTime != nil {
			at := sr.ActualTime.UTC()
			reading.ActualTime = &at
		}
		repo.PutReading(reading)
	}

	return len(seed.Nodes), len(seed.Readings), nil
}

// LoadMemorySeedFile 从文件加载种子数据
func LoadMemorySeedFile(repo *MemoryNodesRepository, path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open memory seed: %w", err)
	}
	defer f.Close()
	return LoadMemorySeed(repo, f)
}
