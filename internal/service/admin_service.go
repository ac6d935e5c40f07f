package service

import (
	"context"
	"time"

	"edubot/internal/model"
	"edubot/internal/repository"
	"edubot/pkg/cache"
	"edubot/pkg/log"
)

const (
	recentTranscripts = 5
	histogramDays     = 7
	statsCacheKey     = "admin:stats"

	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Stats 是管理后台统计接口的响应结构。
type Stats struct {
	TotalConversas   int64                     `json:"totalConversas"`
	TotalMensagens   int64                     `json:"totalMensagens"`
	TotalUsuarios    int64                     `json:"totalUsuarios"`
	UltimasConversas []model.TranscriptSummary `json:"ultimasConversas"`
	ConversasPorDia  []model.DailyCount        `json:"conversasPorDia"`
}

// TranscriptListResponse 定义了会话列表 API 的分页响应结构。
type TranscriptListResponse struct {
	Content       []model.Transcript `json:"content"`
	TotalElements int64              `json:"totalElements"`
	TotalPages    int                `json:"totalPages"`
	Size          int                `json:"size"`
	Number        int                `json:"number"`
}

// AdminService 接口定义了所有管理员相关的业务操作。
type AdminService interface {
	Stats(ctx context.Context) (*Stats, error)
	// ListTranscripts 分页返回所有会话记录，page 从 1 开始。
	ListTranscripts(ctx context.Context, page, size int) (*TranscriptListResponse, error)
}

type adminService struct {
	transcriptRepo repository.TranscriptRepository
	cache          cache.Cache
	ttl            time.Duration
	now            func() time.Time
}

// NewAdminService 创建一个新的 AdminService 实例。
func NewAdminService(transcriptRepo repository.TranscriptRepository, c cache.Cache, ttl time.Duration) AdminService {
	return &adminService{
		transcriptRepo: transcriptRepo,
		cache:          c,
		ttl:            ttl,
		now:            time.Now,
	}
}

func (s *adminService) Stats(ctx context.Context) (*Stats, error) {
	var cached Stats
	if found, err := s.cache.GetJSON(ctx, statsCacheKey, &cached); err != nil {
		log.Warnf("Failed to read cached stats: %v", err)
	} else if found {
		return &cached, nil
	}

	total, err := s.transcriptRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	messages, err := s.transcriptRepo.SumMessages(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.transcriptRepo.CountDistinctUsers(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.transcriptRepo.Recent(ctx, recentTranscripts)
	if err != nil {
		return nil, err
	}
	if recent == nil {
		recent = []model.TranscriptSummary{}
	}

	since := startOfDay(s.now().UTC()).AddDate(0, 0, -(histogramDays - 1))
	starts, err := s.transcriptRepo.StartTimesSince(ctx, since)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalConversas:   total,
		TotalMensagens:   messages,
		TotalUsuarios:    users,
		UltimasConversas: recent,
		ConversasPorDia:  dailyHistogram(starts),
	}
	if err := s.cache.SetJSON(ctx, statsCacheKey, stats, s.ttl); err != nil {
		log.Warnf("Failed to cache stats: %v", err)
	}
	return stats, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// dailyHistogram 按 UTC 日期升序统计开始时间，没有会话的日期不输出。
func dailyHistogram(starts []time.Time) []model.DailyCount {
	out := []model.DailyCount{}
	for _, t := range starts {
		day := t.UTC().Format("2006-01-02")
		if n := len(out); n > 0 && out[n-1].Day == day {
			out[n-1].Count++
			continue
		}
		out = append(out, model.DailyCount{Day: day, Count: 1})
	}
	return out
}

func (s *adminService) ListTranscripts(ctx context.Context, page, size int) (*TranscriptListResponse, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	offset := (page - 1) * size
	list, total, err := s.transcriptRepo.FindWithPagination(ctx, offset, size)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.Transcript{}
	}
	return &TranscriptListResponse{
		Content:       list,
		TotalElements: total,
		TotalPages:    int((total + int64(size) - 1) / int64(size)),
		Size:          size,
		Number:        page,
	}, nil
}
