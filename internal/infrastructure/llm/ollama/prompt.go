package ollama

import (
	"fmt"
	"strings"
)

const promptTextLimit = 2000

var depthFields = []string{"category", "subcategory", "detail", "sub_detail"}

var depthFieldHints = map[string]string{
	"category":    "최상위 분류 (예: 세무, 병무, 법무)",
	"subcategory": "하위 분류 (예: 종합소득세, 입영)",
	"detail":      "세부 분류",
	"sub_detail":  "최하위 세부 분류",
}

// BuildCategoryPrompt asks the model for a category assignment of the
// given depth, answered as a single JSON object with exactly the fields
// the depth requires.
func BuildCategoryPrompt(text string, depth int) string {
	if runes := []rune(text); len(runes) > promptTextLimit {
		text = string(runes[:promptTextLimit])
	}

	fields := depthFields[:depth]

	var b strings.Builder
	b.WriteString("다음은 공공기관 문서에서 추출한 텍스트입니다. 문서 내용을 읽고 분류 체계를 생성하세요.\n\n")
	b.WriteString("문서 텍스트:\n")
	b.WriteString(text)
	b.WriteString("\n\n")
	b.WriteString("다음 필드를 모두 포함하는 JSON 객체 하나만 출력하세요. 다른 설명은 쓰지 마세요.\n")
	for _, f := range fields {
		fmt.Fprintf(&b, "- %s: %s\n", f, depthFieldHints[f])
	}
	b.WriteString("\nJSON:")
	return b.String()
}

// schemaForDepth builds the JSON schema the model response must satisfy:
// exactly the depth's fields, all required, nothing extra.
func schemaForDepth(depth int) string {
	fields := depthFields[:depth]

	var props strings.Builder
	for i, f := range fields {
		if i > 0 {
			props.WriteString(",")
		}
		fmt.Fprintf(&props, "%q: {\"type\": \"string\", \"minLength\": 1}", f)
	}

	required := make([]string, len(fields))
	for i, f := range fields {
		required[i] = fmt.Sprintf("%q", f)
	}

	return fmt.Sprintf(`{
		"type": "object",
		"properties": {%s},
		"required": [%s],
		"additionalProperties": false
	}`, props.String(), strings.Join(required, ","))
}
