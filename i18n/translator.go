package i18n

import "strings"

// Translator retrieves localized messages for Issue codes.
// data provides values to embed in the message (for example, "min" or
// "value"). Placeholders are written as {name}.
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

var dictionaries = map[string]map[string]string{
	"en": {
		"unknown_type":        "unknown type {type}",
		"cyclic_schema":       "cyclic schema {cycle}",
		"unknown_field":       "unknown field {field}",
		"invalid_bounds":      "invalid bounds: min {min} is greater than max {max}",
		"invalid_pattern":     "invalid pattern {pattern}",
		"invalid_alphabet":    "invalid alphabet: {reason}",
		"invalid_name":        "invalid name {name}",
		"reserved_name":       "name {name} is reserved",
		"duplicate_type":      "type {name} is already registered",
		"duplicate_schema":    "schema {name} is already declared",
		"invalid_declaration": "invalid declaration: {reason}",
		"registry_sealed":     "registry is sealed",
		"arity_mismatch":      "expected {expected} arguments, got {actual}",
		"invalid_type":        "expected {expected}, got {actual}",
		"out_of_range":        "value {value} is out of range: {side} bound is {bound}",
		"invalid_alpha":       "value {value} is not a valid symbol: {reason}",
		"pattern_mismatch":    "value {value} does not match pattern {pattern}",
		"validation":          "validation failed",
		"duplicate_fact":      "duplicate fact {identity}",
		"unknown_predicate":   "unknown predicate {predicate}",
		"count_mismatch":      "expected count {expected}, got {actual}",
		"sum_mismatch":        "expected sum {expected}, got {actual}",
	},
	"ja": {
		"unknown_type":        "未知の型です: {type}",
		"cyclic_schema":       "スキーマが循環しています: {cycle}",
		"unknown_field":       "未知のフィールドです: {field}",
		"invalid_bounds":      "範囲が不正です: 最小値 {min} が最大値 {max} より大きい",
		"invalid_pattern":     "パターンが不正です: {pattern}",
		"invalid_alphabet":    "アルファベットが不正です: {reason}",
		"invalid_name":        "名前が不正です: {name}",
		"reserved_name":       "予約済みの名前です: {name}",
		"duplicate_type":      "型 {name} は登録済みです",
		"duplicate_schema":    "スキーマ {name} は宣言済みです",
		"invalid_declaration": "宣言が不正です: {reason}",
		"registry_sealed":     "レジストリは確定済みです",
		"arity_mismatch":      "引数の数が不正です: 期待値 {expected}, 実際 {actual}",
		"invalid_type":        "型が不正です: 期待値 {expected}, 実際 {actual}",
		"out_of_range":        "値 {value} は範囲外です: {side} 境界 {bound}",
		"invalid_alpha":       "値 {value} は有効なシンボルではありません: {reason}",
		"pattern_mismatch":    "値 {value} はパターン {pattern} に一致しません",
		"validation":          "検証に失敗しました",
		"duplicate_fact":      "ファクトが重複しています: {identity}",
		"unknown_predicate":   "未知の述語です: {predicate}",
		"count_mismatch":      "件数が一致しません: 期待値 {expected}, 実際 {actual}",
		"sum_mismatch":        "合計が一致しません: 期待値 {expected}, 実際 {actual}",
	},
}

func (t dictTranslator) Message(code string, data map[string]string) string {
	msg, ok := dictionaries[t.lang][code]
	if !ok {
		return code
	}
	return expand(msg, data)
}

func expand(msg string, data map[string]string) string {
	if len(data) == 0 || !strings.Contains(msg, "{") {
		return msg
	}
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return currentTranslator.Message(code, data) }
