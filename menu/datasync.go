package menu

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

var ErrUnknownField = errors.New("menu: unknown synchronized field")

// FieldUpdate 单个字段的线上表示
type FieldUpdate struct {
	ID    uint16          `json:"id"`
	Value json.RawMessage `json:"value"`
}

type syncField interface {
	fieldID() uint16
	dirty() bool
	changedSeq() uint64
	encode() (json.RawMessage, error)
	markSent()
	decode(raw json.RawMessage) error
}

// DataSync 服务端可观察字段的差量同步；每个会话一份
type DataSync struct {
	fields []syncField
	byID   map[uint16]syncField
	seq    uint64
}

func NewDataSync() *DataSync {
	return &DataSync{byID: make(map[uint16]syncField)}
}

// Field 同步字段：当前值、上次广播的快照与变更序号
type Field[T comparable] struct {
	ds      *DataSync
	id      uint16
	value   T
	sent    T
	hasSent bool
	seq     uint64
}

// NewField 注册字段；同一会话内 id 不可复用，重复即编程错误
func NewField[T comparable](ds *DataSync, id uint16, initial T) *Field[T] {
	if _, dup := ds.byID[id]; dup {
		panic(fmt.Sprintf("menu: synchronized field id %d registered twice", id))
	}
	f := &Field[T]{ds: ds, id: id, value: initial}
	ds.fields = append(ds.fields, f)
	ds.byID[id] = f
	return f
}

func (f *Field[T]) ID() uint16 { return f.id }

func (f *Field[T]) Get() T { return f.value }

// Set 修改值并记录变更顺序
func (f *Field[T]) Set(v T) {
	if v == f.value {
		return
	}
	f.value = v
	f.ds.seq++
	f.seq = f.ds.seq
}

func (f *Field[T]) fieldID() uint16    { return f.id }
func (f *Field[T]) changedSeq() uint64 { return f.seq }
func (f *Field[T]) dirty() bool        { return !f.hasSent || f.value != f.sent }

func (f *Field[T]) encode() (json.RawMessage, error) {
	b, err := json.Marshal(f.value)
	if err != nil {
		return nil, fmt.Errorf("encode field %d: %w", f.id, err)
	}
	return b, nil
}

func (f *Field[T]) markSent() {
	f.sent = f.value
	f.hasSent = true
}

func (f *Field[T]) decode(raw json.RawMessage) error {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("decode field %d: %w", f.id, err)
	}
	f.value = v
	f.markSent()
	return nil
}

func (d *DataSync) HasFields() bool { return len(d.fields) > 0 }

// HasChanges 是否存在与上次广播不同的字段
func (d *DataSync) HasChanges() bool {
	for _, f := range d.fields {
		if f.dirty() {
			return true
		}
	}
	return false
}

// WriteUpdate 只输出变化的字段（按变更顺序），并更新快照；无变化时返回 nil
func (d *DataSync) WriteUpdate() ([]FieldUpdate, error) {
	var changed []syncField
	for _, f := range d.fields {
		if f.dirty() {
			changed = append(changed, f)
		}
	}
	if len(changed) == 0 {
		return nil, nil
	}
	slices.SortStableFunc(changed, func(a, b syncField) int {
		switch {
		case a.changedSeq() < b.changedSeq():
			return -1
		case a.changedSeq() > b.changedSeq():
			return 1
		}
		return 0
	})
	return d.write(changed)
}

// WriteFull 输出全部字段，不论是否变化（用于会话建立或重建）
func (d *DataSync) WriteFull() ([]FieldUpdate, error) {
	return d.write(d.fields)
}

func (d *DataSync) write(fields []syncField) ([]FieldUpdate, error) {
	out := make([]FieldUpdate, 0, len(fields))
	for _, f := range fields {
		raw, err := f.encode()
		if err != nil {
			return nil, err
		}
		out = append(out, FieldUpdate{ID: f.fieldID(), Value: raw})
	}
	// 全部编码成功后才更新快照，避免部分发送
	for _, f := range fields {
		f.markSent()
	}
	return out, nil
}

// ReadUpdate 镜像端按 id 应用更新，返回被更新的字段 id
func (d *DataSync) ReadUpdate(updates []FieldUpdate) ([]uint16, error) {
	ids := make([]uint16, 0, len(updates))
	for _, u := range updates {
		f, ok := d.byID[u.ID]
		if !ok {
			return ids, fmt.Errorf("%w: %d", ErrUnknownField, u.ID)
		}
		if err := f.decode(u.Value); err != nil {
			return ids, err
		}
		ids = append(ids, u.ID)
	}
	return ids, nil
}
