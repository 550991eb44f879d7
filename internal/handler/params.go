// Package handler 提供素材库的HTTP处理器
// 前台查询、管理后台与文件上传接口均在此包中
package handler

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sumicowork/HOYODB/internal/response"
)

// pathID 解析路径中的数字ID，非法时直接返回400
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, "无效的ID")
		return 0, false
	}
	return uint(id), true
}

// queryID 解析可选的数字查询参数，未提供时返回nil
func queryID(c *gin.Context, name string) (*uint, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		response.BadRequest(c, "无效的参数: "+name)
		return nil, false
	}
	v := uint(id)
	return &v, true
}

// queryInt 解析整数查询参数，非法时返回0交由分页默认值处理，超出范围时取边界值
func queryInt(c *gin.Context, name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.Query(name)))
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	return n
}

// bindJSON 绑定请求体，失败时返回400
func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		response.BadRequest(c, "请求参数错误")
		return false
	}
	return true
}

// formReader 解析表单字段，记录第一个格式错误的字段
type formReader struct {
	c       *gin.Context
	invalid string
}

func newFormReader(c *gin.Context) *formReader {
	return &formReader{c: c}
}

func (f *formReader) fail(name string) {
	if f.invalid == "" {
		f.invalid = name
	}
}

// valid 存在格式错误时返回400
func (f *formReader) valid() bool {
	if f.invalid == "" {
		return true
	}
	response.BadRequest(f.c, "无效的参数: "+f.invalid)
	return false
}

func (f *formReader) raw(name string) string {
	return strings.TrimSpace(f.c.PostForm(name))
}

// uintField 未提供时为0
func (f *formReader) uintField(name string) uint {
	raw := f.raw(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		f.fail(name)
		return 0
	}
	return uint(n)
}

// stringField 可选表单字段，空串视为未提供
func (f *formReader) stringField(name string) *string {
	v, ok := f.c.GetPostForm(name)
	if !ok || v == "" {
		return nil
	}
	return &v
}

func (f *formReader) intField(name string) *int {
	raw := f.raw(name)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		f.fail(name)
		return nil
	}
	return &n
}

func (f *formReader) int64Field(name string) *int64 {
	raw := f.raw(name)
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		f.fail(name)
		return nil
	}
	return &n
}

// boolField 只接受 true/false，未提供时为false
func (f *formReader) boolField(name string) bool {
	raw := f.raw(name)
	if raw == "" {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		f.fail(name)
		return false
	}
	return v
}

// tagIDs 解析 tagIds，支持 JSON 数组字符串、单个数字或多个同名字段
func (f *formReader) tagIDs() []uint {
	values := f.c.PostFormArray("tagIds")
	if len(values) == 1 {
		ids, ok := parseTagIDs(values[0])
		if !ok {
			f.fail("tagIds")
		}
		return ids
	}

	ids := make([]uint, 0, len(values))
	for _, v := range values {
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			f.fail("tagIds")
			return []uint{}
		}
		ids = append(ids, uint(n))
	}
	return ids
}

func parseTagIDs(raw string) ([]uint, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []uint{}, true
	}
	if n, err := strconv.ParseUint(raw, 10, 64); err == nil {
		return []uint{uint(n)}, true
	}

	var items []json.Number
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		var strs []string
		if err := json.Unmarshal([]byte(raw), &strs); err != nil {
			return []uint{}, false
		}
		items = items[:0]
		for _, s := range strs {
			items = append(items, json.Number(strings.TrimSpace(s)))
		}
	}

	ids := make([]uint, 0, len(items))
	for _, item := range items {
		n, err := strconv.ParseUint(item.String(), 10, 64)
		if err != nil {
			return []uint{}, false
		}
		ids = append(ids, uint(n))
	}
	return ids, true
}
