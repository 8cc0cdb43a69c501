package reconciler

import (
	"net/url"
	"strings"

	"github.com/bytedance/sonic"
)

// ObjectCreated 规范化后的“对象已创建”事实.
type ObjectCreated struct {
	Bucket string
	// Key 已做 URL 解码
	Key  string
	Size *int64
	// Source 命中的识别器名称
	Source string
}

// Recognizer 尝试把原始消息体解析为对象创建事件，不匹配时返回 false.
// 识别器必须是纯函数，非法 JSON 视为不匹配.
type Recognizer struct {
	Name  string
	Match func(raw []byte) ([]ObjectCreated, bool)
}

// maxWrapDepth 嵌套信封的最大展开层数.
const maxWrapDepth = 3

// DefaultRecognizers 按顺序尝试：Records 信封、包装通知、审计事件.
func DefaultRecognizers() []Recognizer {
	return []Recognizer{
		{Name: "records", Match: matchRecords},
		{Name: "wrapped", Match: func(raw []byte) ([]ObjectCreated, bool) { return matchWrapped(raw, 0) }},
		{Name: "audit", Match: matchAudit},
	}
}

// Recognize 依次尝试识别器，返回第一个匹配的结果，key 已解码.
func Recognize(recognizers []Recognizer, raw []byte) ([]ObjectCreated, bool) {
	for _, r := range recognizers {
		events, ok := r.Match(raw)
		if !ok || len(events) == 0 {
			continue
		}

		for i := range events {
			events[i].Key = decodeKey(events[i].Key)
			if events[i].Source == "" {
				events[i].Source = r.Name
			}
		}

		return events, true
	}

	return nil, false
}

// decodeKey 对象存储通知中的 key 经过表单编码，空格为 '+'.
func decodeKey(key string) string {
	decoded, err := url.QueryUnescape(key)
	if err != nil {
		return key
	}

	return decoded
}

type s3Entity struct {
	Bucket struct {
		Name string `json:"name"`
	} `json:"bucket"`
	Object struct {
		Key  string `json:"key"`
		Size *int64 `json:"size"`
	} `json:"object"`
}

type recordsEnvelope struct {
	Records []struct {
		EventName string   `json:"eventName"`
		S3        s3Entity `json:"s3"`
	} `json:"Records"`
}

// matchRecords S3/MinIO 通知：{"Records":[{"eventName":"ObjectCreated:Put","s3":{...}}]}.
// 只接受 ObjectCreated 事件，没有 eventName 的记录按创建处理.
func matchRecords(raw []byte) ([]ObjectCreated, bool) {
	var env recordsEnvelope
	if err := sonic.Unmarshal(raw, &env); err != nil || len(env.Records) == 0 {
		return nil, false
	}

	var out []ObjectCreated

	for _, rec := range env.Records {
		if rec.EventName != "" && !strings.Contains(rec.EventName, "ObjectCreated") {
			continue
		}

		if rec.S3.Object.Key == "" {
			continue
		}

		out = append(out, ObjectCreated{
			Bucket: rec.S3.Bucket.Name,
			Key:    rec.S3.Object.Key,
			Size:   rec.S3.Object.Size,
		})
	}

	return out, len(out) > 0
}

type wrappedEnvelope struct {
	Message *string `json:"Message"`
}

// matchWrapped SNS 等包装通知：Message 字段是一段 JSON 字符串，展开后重新识别.
func matchWrapped(raw []byte, depth int) ([]ObjectCreated, bool) {
	if depth >= maxWrapDepth {
		return nil, false
	}

	var env wrappedEnvelope
	if err := sonic.Unmarshal(raw, &env); err != nil || env.Message == nil {
		return nil, false
	}

	inner := []byte(*env.Message)

	if events, ok := matchRecords(inner); ok {
		return events, true
	}

	if events, ok := matchAudit(inner); ok {
		return events, true
	}

	return matchWrapped(inner, depth+1)
}

type auditEnvelope struct {
	DetailType string    `json:"detail-type"`
	Detail     *s3Entity `json:"detail"`
}

// matchAudit EventBridge 事件：{"detail-type":"Object Created","detail":{"bucket":{...},"object":{...}}}.
func matchAudit(raw []byte) ([]ObjectCreated, bool) {
	var env auditEnvelope
	if err := sonic.Unmarshal(raw, &env); err != nil || env.Detail == nil {
		return nil, false
	}

	if !strings.EqualFold(env.DetailType, "Object Created") || env.Detail.Object.Key == "" {
		return nil, false
	}

	return []ObjectCreated{{
		Bucket: env.Detail.Bucket.Name,
		Key:    env.Detail.Object.Key,
		Size:   env.Detail.Object.Size,
	}}, true
}
