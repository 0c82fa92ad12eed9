package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// 导入行的字段净化：历史数据的行业别名、DD/MM/YYYY 日期、不规则电话格式。

// industryAliases 历史导出文件里出现过的行业别名 -> 规范名
var industryAliases = map[string]string{
	"Educational institutions": "Education",
	"Educational institution":  "Education",
	"Biotech Company":          "Biotechnology",
	"Diagnostics":              "Healthcare",
	"Diagnostic":               "Healthcare",
	"Dairy":                    "Food & Beverage",
	"Distillery":               "Food & Beverage",
	"Environmental":            "Environmental Services",
	"Food Testing":             "Food & Beverage",
	"Instrumentation":          "Manufacturing",
	"Research Institute":       "Research",
}

// normalizeIndustry 别名替换；未知值原样保留
func normalizeIndustry(industry string) string {
	industry = strings.TrimSpace(industry)
	if canonical, ok := industryAliases[industry]; ok {
		return canonical
	}
	return industry
}

// normalizeDate 把 DD/MM/YYYY 重写为 ISO（YYYY-MM-DD）。
// 已经是 ISO 的值原样通过，解析不了的值也原样保留（由存储层报错）。
func normalizeDate(value string) string {
	value = strings.TrimSpace(value)
	parts := strings.Split(value, "/")
	if len(parts) != 3 {
		return value
	}
	day, month, year := parts[0], parts[1], parts[2]
	if len(year) != 4 {
		return value
	}
	if len(month) == 1 {
		month = "0" + month
	}
	if len(day) == 1 {
		day = "0" + day
	}
	return fmt.Sprintf("%s-%s-%s", year, month, day)
}

var phoneSpaceRe = regexp.MustCompile(`\s+`)

// normalizePhone 连续空白压成单个空格并去掉首尾空白
func normalizePhone(value string) string {
	return strings.TrimSpace(phoneSpaceRe.ReplaceAllString(value, " "))
}

// todayISO 今天的 ISO 日期（模板示例行用）
func todayISO() string {
	return time.Now().Format("2006-01-02")
}
