// Package service 包含了应用的业务逻辑层。
package service

import (
	"errors"

	"edubot/internal/repository"
)

// 各 service 共用的哨兵错误。handler 通过 errors.Is 将其映射为 HTTP 状态码，包装时使用 %w。
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = repository.ErrNotFound
	ErrMalformedID = repository.ErrMalformedID
	ErrProvider    = errors.New("ai provider failure")
)
