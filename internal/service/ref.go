package service

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/mindfulpath/internal/apperr"
)

// Ref 是客户端传入的实体引用，JSON 中可以是字符串或数字。
type Ref string

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Ref(strings.TrimSpace(s))
		return nil
	}
	*r = Ref(data)
	return nil
}

// Empty reports whether no reference was supplied.
func (r Ref) Empty() bool {
	return strings.TrimSpace(string(r)) == ""
}

// Parse 将引用解析为主键，格式错误时返回字段级校验错误。
func (r Ref) Parse(field string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(string(r)), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Field(field, "must be a valid id")
	}
	return uint(id), nil
}

// ParseOptional 与 Parse 相同，但空引用返回 nil。
func (r Ref) ParseOptional(field string) (*uint, error) {
	if r.Empty() {
		return nil, nil
	}
	id, err := r.Parse(field)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// Pagination 描述分页结果。
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

func newPagination(total int64, page, limit int) Pagination {
	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Total: total, Page: page, Limit: limit, TotalPages: totalPages}
}

// missingFields collects required-field problems for empty values.
func missingFields(values map[string]string, order ...string) []apperr.FieldProblem {
	var problems []apperr.FieldProblem
	for _, field := range order {
		if strings.TrimSpace(values[field]) == "" {
			problems = append(problems, apperr.FieldProblem{Field: field, Reason: "is required"})
		}
	}
	return problems
}
