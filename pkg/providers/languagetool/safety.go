package languagetool

import "sort"

// 安全规则白名单，按修复类别分组
//
// 规则引擎的完整规则集会改写风格和语气，TTS 校正只接受保守的
// 机械性修复：拼写、标点、空白、大小写和简单的主谓一致。
var safeRuleCategories = map[string]string{
	"MORFOLOGIK_RULE_EN_US":        "typos",
	"ENGLISH_WORD_REPEAT_RULE":     "typos",
	"COMMA_PARENTHESIS_WHITESPACE": "punctuation",
	"EN_QUOTES":                    "punctuation",
	"UNPAIRED_BRACKETS":            "punctuation",
	"WHITESPACE_RULE":              "spacing",
	"SENTENCE_WHITESPACE":          "spacing",
	"UPPERCASE_SENTENCE_START":     "casing",
	"PERSPECTIVE_AGREEMENT":        "agreement",
	"SUBJECT_VERB_AGREEMENT":       "agreement",
	"HE_VERB_AGR":                  "agreement",
	"NON3PRS_VERB":                 "agreement",
}

// applySafeMatches 按逆序偏移应用白名单内的替换
//
// LanguageTool API 的 offset/length 按 UTF-16 码元计数，先换算成
// rune 下标再应用；逆序应用保证前面的替换不会挪动后面的位置。
func applySafeMatches(text string, matches []Match) string {
	safe := make([]Match, 0, len(matches))
	for _, m := range matches {
		if _, ok := safeRuleCategories[m.Rule.ID]; !ok {
			continue
		}
		if len(m.Replacements) == 0 {
			continue
		}
		safe = append(safe, m)
	}
	if len(safe) == 0 {
		return text
	}

	sort.Slice(safe, func(i, j int) bool {
		return safe[i].Offset > safe[j].Offset
	})

	runes := []rune(text)
	for _, m := range safe {
		start := utf16ToRuneIndex(runes, m.Offset)
		end := utf16ToRuneIndex(runes, m.Offset+m.Length)
		if start < 0 || end < 0 || start > end {
			continue
		}
		replacement := []rune(m.Replacements[0].Value)
		runes = append(runes[:start], append(replacement, runes[end:]...)...)
	}
	return string(runes)
}

// utf16ToRuneIndex 把 UTF-16 码元偏移换算成 rune 下标
//
// 越界或落在代理对中间时返回 -1，调用方跳过该替换。
func utf16ToRuneIndex(runes []rune, offset int) int {
	if offset < 0 {
		return -1
	}
	u := 0
	for i, r := range runes {
		if u == offset {
			return i
		}
		if u > offset {
			return -1
		}
		u++
		if r > 0xFFFF {
			u++
		}
	}
	if u == offset {
		return len(runes)
	}
	return -1
}

// markdownParityOK 校验 Markdown 符号数量在校正前后一致
//
// 规则引擎偶尔会把链接或行内代码的定界符当成标点修掉，符号数量
// 不一致时整块回退。
func markdownParityOK(original, corrected string) bool {
	for _, symbol := range []rune{'[', ']', '(', ')', '`', '*'} {
		if countRune(original, symbol) != countRune(corrected, symbol) {
			return false
		}
	}
	return true
}

func countRune(s string, target rune) int {
	n := 0
	for _, r := range s {
		if r == target {
			n++
		}
	}
	return n
}
