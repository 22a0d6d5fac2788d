package section

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qri-io/jsonschema"

	"local.dev/portfolio-backend/internal/models"
)

const profileSchema = `{
  "type": "object",
  "properties": {
    "name": {"type": "string"},
    "hometown": {"type": "string"},
    "hobbies": {"type": "string"},
    "university": {"type": "string"},
    "profileImage": {"type": "string"}
  },
  "additionalProperties": false
}`

// categorized / list / history 都是「標題 + 字串陣列」的陣列，只有欄位名稱不同
func groupSchema(coll, label, entries string) string {
	return fmt.Sprintf(`{
  "type": "object",
  "required": [%[1]q],
  "properties": {
    %[1]q: {
      "type": "array",
      "items": {
        "type": "object",
        "required": [%[2]q, %[3]q],
        "properties": {
          %[2]q: {"type": "string"},
          %[3]q: {"type": "array", "items": {"type": "string"}}
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`, coll, label, entries)
}

var schemaSources = map[Type]string{
	TypeProfile:     profileSchema,
	TypeCategorized: groupSchema("items", "title", "items"),
	TypeList:        groupSchema("lists", "title", "items"),
	TypeHistory:     groupSchema("histories", "date", "details"),
}

// Validator 在寫入前用 JSON Schema 檢查 data 的形狀
type Validator struct {
	schemas map[Type]*jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	v := &Validator{schemas: make(map[Type]*jsonschema.Schema, len(schemaSources))}
	for t, src := range schemaSources {
		rs := &jsonschema.Schema{}
		if err := json.Unmarshal([]byte(src), rs); err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", t, err)
		}
		// 第一次驗證時 jsonschema 才註冊 schema（沒有鎖）；在這裡先做掉，之後只會讀
		if _, err := rs.ValidateBytes(context.Background(), []byte(`{}`)); err != nil {
			return nil, fmt.Errorf("register %s schema: %w", t, err)
		}
		v.schemas[t] = rs
	}
	return v, nil
}

// Validate 回傳 *models.APIError（Validation）或 nil
func (v *Validator) Validate(ctx context.Context, t Type, payload []byte) error {
	rs, ok := v.schemas[t]
	if !ok {
		return models.NewValidationError("type", fmt.Sprintf("不明な種類です: %q", t))
	}
	verrs, err := rs.ValidateBytes(ctx, payload)
	if err != nil {
		return models.NewValidationError("data", "JSON として解析できません")
	}
	if len(verrs) > 0 {
		msgs := make([]string, 0, len(verrs))
		for _, ke := range verrs {
			path := ke.PropertyPath
			if path == "" {
				path = "/"
			}
			msgs = append(msgs, path+": "+ke.Message)
		}
		return models.NewValidationError("data", strings.Join(msgs, "; "))
	}
	return nil
}

// ValidateData 先 Encode 再驗證（編輯操作之後用）
func (v *Validator) ValidateData(ctx context.Context, d Data) error {
	b, err := json.Marshal(normalize(d))
	if err != nil {
		return err
	}
	return v.Validate(ctx, d.Type(), b)
}
