package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/assesshub/backoffice/internal/actorctx"
	auditdomain "github.com/assesshub/backoffice/internal/audit/domain"
	"github.com/assesshub/backoffice/internal/audit/masking"
	"github.com/assesshub/backoffice/internal/clock"
	"github.com/assesshub/backoffice/internal/rbac"
	"github.com/assesshub/backoffice/pkg/db/pagination"
	"github.com/assesshub/backoffice/pkg/telemetry/correlation"
)

var sensitiveKeys = map[string]struct{}{
	"token":     {},
	"secret":    {},
	"password":  {},
	"api_key":   {},
	"user_data": {},
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  auditdomain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  auditdomain.Repository
	clock clock.Clock
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) Record(ctx context.Context, entry auditdomain.Entry) error {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}

	targetType := strings.TrimSpace(entry.TargetType)
	if targetType == "" {
		targetType = "unknown"
	}

	payload := map[string]any{}
	for key, value := range entry.Metadata {
		if key == "" {
			continue
		}
		if _, sensitive := sensitiveKeys[key]; sensitive {
			if raw, ok := value.(string); ok {
				payload[key] = masking.MaskSecret(raw)
				continue
			}
			if nested, ok := value.(map[string]any); ok {
				payload[key] = masking.MaskJSON(nested)
				continue
			}
		}
		payload[key] = value
	}
	if requestID := correlation.ExtractCorrelationID(ctx); requestID != "" {
		payload["request_id"] = requestID
	}

	actorType := string(auditdomain.ActorTypeSystem)
	var actorID *string
	var companyID *snowflake.ID
	if actor, ok := actorctx.ActorFromContext(ctx); ok {
		actorType = string(auditdomain.ActorTypeUser)
		id := actor.ID.String()
		actorID = &id
		companyID = actor.CompanyID
	}
	if raw := strings.TrimSpace(entry.CompanyID); raw != "" {
		if id, err := snowflake.ParseString(raw); err == nil {
			companyID = &id
		}
	}

	record := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		CompanyID:  companyID,
		ActorType:  actorType,
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   normalizeTarget(entry.TargetID),
		Metadata:   datatypes.JSONMap(payload),
		CreatedAt:  s.clock.Now(),
	}

	if err := s.repo.Insert(ctx, s.db, &record); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, actor rbac.Actor, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	if !rbac.Authorize(actor.Role, rbac.RoleSiteAdmin) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrForbidden
	}

	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidTimeRange
	}

	var cursor *auditdomain.AuditCursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339, decoded.CreatedAt)
		if err != nil {
			return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
		}
		cursor = &auditdomain.AuditCursor{ID: id, CreatedAt: createdAt}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}

	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		ActorType:  req.ActorType,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Cursor:     cursor,
		Limit:      pageSize,
	})
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(item *auditdomain.AuditLog) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	logs := make([]auditdomain.AuditLog, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		logs = append(logs, *item)
	}

	resp := auditdomain.ListAuditLogResponse{AuditLogs: logs}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func normalizeTarget(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
