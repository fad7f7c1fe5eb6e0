package notifier

import (
	"fmt"
	"strings"
	"time"

	"DowSentinel/internal/analyzer"
	"DowSentinel/internal/model"
)

const timeLayout = "2006-01-02 15:04"

func regimeIcon(r model.Regime) string {
	switch r {
	case model.Up:
		return "📈"
	case model.Down:
		return "📉"
	default:
		return "➖"
	}
}

// FormatRegimeChange formats a regime transition into a Telegram message.
func FormatRegimeChange(target model.Target, c analyzer.RegimeChange) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s <b>%s %s</b> | %s\n\n", regimeIcon(c.To), target.Symbol, target.Interval, c.OpenTime.UTC().Format(timeLayout)))
	b.WriteString(fmt.Sprintf("趋势: %s → <b>%s</b>\n", c.From, c.To))
	b.WriteString(fmt.Sprintf("摆动点: %s %.2f\n", c.Kind, c.Price))
	if c.To.Established() {
		b.WriteString(fmt.Sprintf("转换值: %.2f\n", c.Conversion))
		b.WriteString(fmt.Sprintf("目标值: %.2f\n", c.Target))
	} else {
		b.WriteString("趋势失效，等待新的结构确认\n")
	}
	return b.String()
}

// FormatStatus formats the latest record of every target for display.
func FormatStatus(lines []StatusLine) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>DowSentinel 状态</b> | %s\n\n", time.Now().UTC().Format(timeLayout)))
	if len(lines) == 0 {
		b.WriteString("暂无分析结果\n")
		return b.String()
	}
	for _, l := range lines {
		if !l.Found {
			b.WriteString(fmt.Sprintf("%s: 暂无数据\n", l.Target))
			continue
		}
		r := l.Last
		b.WriteString(fmt.Sprintf("%s %s: %s", regimeIcon(r.Trend), l.Target, r.Trend))
		if r.Classified() {
			b.WriteString(fmt.Sprintf(" (转换 %.2f / 目标 %.2f)", r.Conversion, r.Target))
		}
		b.WriteString(fmt.Sprintf("\n   最近摆动: %s %.2f @ %s\n", r.Kind, r.Extreme(), r.OpenTime.UTC().Format(timeLayout)))
		if !l.FetchedAt.IsZero() {
			b.WriteString(fmt.Sprintf("   数据更新: %s\n", l.FetchedAt.UTC().Format(timeLayout)))
		}
	}
	return b.String()
}

// StatusLine is the latest persisted record of one target.
type StatusLine struct {
	Target    model.Target
	Last      model.TrendRecord
	Found     bool
	FetchedAt time.Time // candles behind Last were fetched at this time; zero before the first run
}
