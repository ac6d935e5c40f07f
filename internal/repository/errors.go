// Package repository 提供了数据访问层的实现。
package repository

import (
	"errors"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound 表示格式正确的标识符没有匹配的记录。
	ErrNotFound = errors.New("record not found")
	// ErrMalformedID 表示标识符格式不合法。
	ErrMalformedID = errors.New("malformed id")
)

// ParseID 将客户端传入的标识符转换为主键。
func ParseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, ErrMalformedID
	}
	return uint(id), nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
