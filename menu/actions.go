package menu

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"
)

// MaxPayloadLength 动作参数序列化后的最大长度（UTF-16 码元）
const MaxPayloadLength = 32767

var (
	ErrUnknownAction    = errors.New("menu: unknown client action")
	ErrArgumentShape    = errors.New("menu: action argument does not match declared shape")
	ErrPayloadTooLarge  = errors.New("menu: action payload too large")
	ErrMalformedPayload = errors.New("menu: malformed action payload")
)

type actionDescriptor struct {
	name    string
	argType reflect.Type // nil 表示无参数
	schema  *jsonschema.Schema
	handle  func(payload json.RawMessage) error
}

// ActionOption 注册动作时的可选项
type ActionOption func(*actionDescriptor)

// WithSchema 用 JSON Schema 约束参数；schema 无法编译属于编程错误
func WithSchema(schema string) ActionOption {
	return func(d *actionDescriptor) {
		s, err := jsonschema.CompileString("mem://actions/"+d.name+".json", schema)
		if err != nil {
			panic(fmt.Sprintf("menu: action %q schema: %v", d.name, err))
		}
		d.schema = s
	}
}

// ActionRegistry 按名称索引的动作表，服务端与镜像端各持一份相同的表
type ActionRegistry struct {
	actions map[string]*actionDescriptor
	log     *zap.SugaredLogger
}

func NewActionRegistry(log *zap.SugaredLogger) *ActionRegistry {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &ActionRegistry{actions: make(map[string]*actionDescriptor), log: log}
}

func (r *ActionRegistry) add(d *actionDescriptor, opts []ActionOption) {
	if _, dup := r.actions[d.name]; dup {
		panic(fmt.Sprintf("menu: duplicate client action registered: %s", d.name))
	}
	for _, opt := range opts {
		opt(d)
	}
	r.actions[d.name] = d
}

// RegisterAction 注册带参数的动作，参数类型由 T 决定
func RegisterAction[T any](r *ActionRegistry, name string, handler func(T), opts ...ActionOption) {
	d := &actionDescriptor{name: name, argType: reflect.TypeOf((*T)(nil)).Elem()}
	d.handle = func(payload json.RawMessage) error {
		var arg T
		if err := json.Unmarshal(payload, &arg); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformedPayload, name, err)
		}
		handler(arg)
		return nil
	}
	r.add(d, opts)
}

// RegisterNoArgAction 注册无参数动作
func RegisterNoArgAction(r *ActionRegistry, name string, handler func(), opts ...ActionOption) {
	d := &actionDescriptor{name: name}
	d.handle = func(json.RawMessage) error {
		handler()
		return nil
	}
	r.add(d, opts)
}

func (r *ActionRegistry) Has(name string) bool {
	_, ok := r.actions[name]
	return ok
}

// Invoke 处理对端发来的动作：查表、校验载荷形状、反序列化、执行
func (r *ActionRegistry) Invoke(name string, payload json.RawMessage) error {
	d, ok := r.actions[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	if d.argType == nil {
		if payload != nil {
			return fmt.Errorf("%w: %s takes no argument", ErrArgumentShape, name)
		}
		r.log.Debugf("handling client action '%s'", name)
		return d.handle(nil)
	}
	if payload == nil {
		return fmt.Errorf("%w: %s requires an argument", ErrArgumentShape, name)
	}
	if n := codeUnits(payload); n > MaxPayloadLength {
		return fmt.Errorf("%w: %s (%d)", ErrPayloadTooLarge, name, n)
	}
	if d.schema != nil {
		var doc any
		if err := json.Unmarshal(payload, &doc); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformedPayload, name, err)
		}
		if err := d.schema.Validate(doc); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformedPayload, name, err)
		}
	}
	r.log.Debugf("handling client action '%s' with payload %s", name, payload)
	return d.handle(payload)
}

// Encode 发送前校验参数类型与声明完全一致，并序列化、检查长度
func (r *ActionRegistry) Encode(name string, arg any) (json.RawMessage, error) {
	d, ok := r.actions[name]
	if !ok {
		return nil, fmt.Errorf("%w: trying to send unregistered action %q", ErrUnknownAction, name)
	}
	if d.argType == nil {
		if arg != nil {
			return nil, fmt.Errorf("%w: %s requires no argument, but one was given", ErrArgumentShape, name)
		}
		return nil, nil
	}
	if isNil(arg) {
		return nil, fmt.Errorf("%w: %s requires an argument, but none was given", ErrArgumentShape, name)
	}
	if t := reflect.TypeOf(arg); t != d.argType {
		return nil, fmt.Errorf("%w: %s got %v, expected %v", ErrArgumentShape, name, t, d.argType)
	}
	payload, err := json.Marshal(arg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, name, err)
	}
	if n := codeUnits(payload); n > MaxPayloadLength {
		return nil, fmt.Errorf("%w: cannot send %s, serialized argument is longer than %d (%d)",
			ErrPayloadTooLarge, name, MaxPayloadLength, n)
	}
	return payload, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// codeUnits 按 UTF-16 码元计算长度（与对端的字符串长度口径一致）
func codeUnits(b []byte) int {
	n := 0
	for _, r := range string(b) {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}
