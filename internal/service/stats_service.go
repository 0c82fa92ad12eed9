package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"recordhub-data/internal/domain"
	"recordhub-data/internal/repository"
	"recordhub-data/internal/store"
)

// statsTTL 导航统计缓存时长。计数不需要强一致，短 TTL 即可。
const statsTTL = 60 * time.Second

// StatsService 导航栏的记录计数（accounts/contacts/leads/products）。
// 读路径走 KV 缓存，miss 时回源 Count 再写缓存。
type StatsService struct {
	records repository.RecordsRepo
	kv      store.KV
	logger  *zap.Logger
}

// NewStatsService 创建统计服务
func NewStatsService(records repository.RecordsRepo, kv store.KV, logger *zap.Logger) *StatsService {
	return &StatsService{records: records, kv: kv, logger: logger}
}

func statsKey(tenantID string) string {
	return fmt.Sprintf("recordhub:stats:%s", tenantID)
}

// NavigationStats 返回每个记录类型的行数
func (s *StatsService) NavigationStats(ctx context.Context, tenantID string) (map[string]int, error) {
	if tenantID == "" {
		return nil, domain.NewValidationError("tenant_id is required")
	}

	cached := map[string]int{}
	if err := store.GetJSON(ctx, s.kv, statsKey(tenantID), &cached); err == nil {
		return cached, nil
	} else if err != store.ErrMiss {
		// 缓存故障降级为直查，不阻塞请求
		s.logger.Warn("stats cache read failed", zap.Error(err))
	}

	counts := map[string]int{}
	for _, recordType := range domain.RecordTypes() {
		n, err := s.records.Count(ctx, recordType, tenantID)
		if err != nil {
			return nil, err
		}
		counts[recordType] = n
	}

	if err := store.SetJSON(ctx, s.kv, statsKey(tenantID), counts, statsTTL); err != nil {
		s.logger.Warn("stats cache write failed", zap.Error(err))
	}
	return counts, nil
}

// Invalidate 写路径变更后清掉租户的计数缓存
func (s *StatsService) Invalidate(ctx context.Context, tenantID string) {
	if err := s.kv.Delete(ctx, statsKey(tenantID)); err != nil {
		s.logger.Warn("stats cache invalidate failed", zap.Error(err))
	}
}
