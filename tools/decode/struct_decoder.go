package decode

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Options 定制解码行为。
type Options struct {
	// 宽松解码（默认 true）：例如 "123" -> int、1.0 -> int64。
	WeaklyTypedInput bool
}

func DefaultOptions() Options {
	return Options{WeaklyTypedInput: true}
}

// FromMap 将动态 map 解码到任意结构体 T，字段按 `json` tag 匹配。
// T 通常是业务负载，例如 SendPayload / ReactPayload。
func FromMap[T any](m map[string]any, opts ...Options) (*T, error) {
	if m == nil {
		return nil, fmt.Errorf("map is nil")
	}
	cfg := DefaultOptions()
	if len(opts) > 0 {
		cfg = opts[0]
	}

	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: cfg.WeaklyTypedInput,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(m); err != nil {
		return nil, err
	}
	return &out, nil
}
