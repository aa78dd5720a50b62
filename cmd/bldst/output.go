package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"
)

// table tabwriter 封装, 列之间两个空格
type table struct {
	w *tabwriter.Writer
}

func (t *table) header(cols ...string) {
	t.row(cols...)
}

func (t *table) row(cols ...string) {
	fmt.Fprintln(t.w, strings.Join(cols, "\t"))
}

// render 按 --output 输出: json/yaml 直接序列化 v, table 交给 fill
func render(cx *cliContext, v interface{}, fill func(t *table)) error {
	switch cx.format() {
	case "json":
		enc := json.NewEncoder(cx.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		// 先转 json 再转 yaml, 保持与API一致的字段名
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic interface{}
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(cx.out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(generic)
	case "table", "":
		t := &table{w: tabwriter.NewWriter(cx.out, 0, 0, 2, ' ', 0)}
		fill(t)
		return t.w.Flush()
	default:
		return fmt.Errorf("不支持的输出格式: %s", cx.format())
	}
}

func str(p *string) string {
	if p == nil {
		return "-"
	}
	return *p
}

func intStr(p *int) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprint(*p)
}

func timeStr(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
