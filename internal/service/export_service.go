package service

import (
	"context"
	"encoding/json"
	"fmt"
	"love-coach-go/pkg/log"
	"time"
)

// ObjectStore 是导出所需的对象存储能力。
type ObjectStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// ExportResult 描述一次导出的对象位置和临时下载地址。
type ExportResult struct {
	Object string `json:"object"`
	URL    string `json:"url"`
}

// ExportService 接口定义了把 Target 完整历史导出到对象存储的操作。
type ExportService interface {
	Export(ctx context.Context, targetID uint) (*ExportResult, error)
}

type exportService struct {
	targets TargetService
	store   ObjectStore
	expiry  time.Duration
	now     func() time.Time
}

// NewExportService 创建一个新的 ExportService 实例。store 为 nil 表示未启用导出。
func NewExportService(targets TargetService, store ObjectStore, expiry time.Duration) ExportService {
	return &exportService{
		targets: targets,
		store:   store,
		expiry:  expiry,
		now:     time.Now,
	}
}

func (s *exportService) Export(ctx context.Context, targetID uint) (*ExportResult, error) {
	if s.store == nil {
		return nil, notFoundError("export disabled")
	}
	archive, err := s.targets.Archive(ctx, targetID)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		return nil, storageError("failed to encode export", err)
	}

	key := fmt.Sprintf("exports/target-%d/%d.json", targetID, s.now().UnixNano())
	if err := s.store.PutObject(ctx, key, data, "application/json"); err != nil {
		log.Errorf("[ExportService] 上传导出文件失败, key: %s, error: %v", key, err)
		return nil, storageError("failed to upload export", err)
	}
	url, err := s.store.PresignGet(ctx, key, s.expiry)
	if err != nil {
		log.Errorf("[ExportService] 生成预签名链接失败, key: %s, error: %v", key, err)
		return nil, storageError("failed to presign export", err)
	}
	log.Infof("[ExportService] 导出完成, targetID: %d, key: %s, size: %d", targetID, key, len(data))
	return &ExportResult{Object: key, URL: url}, nil
}
