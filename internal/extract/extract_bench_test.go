package extract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/osintscope/eventsearch/internal/model"
)

// Benchmark field extraction on representative article pages, with and
// without a configured selector set.
func BenchmarkFromHTML(b *testing.B) {
	small := makeArticleHTML(5)
	large := makeArticleHTML(200)
	sel := model.Selectors{
		Title:   "h1.headline",
		Content: ".article-body",
		Date:    "time",
		Author:  ".byline",
	}

	b.Run("selectors/small", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = FromHTML(small, sel)
		}
	})
	b.Run("selectors/large", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = FromHTML(large, sel)
		}
	})
	b.Run("generic/large", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = FromHTML(large, model.Selectors{})
		}
	})
}

func BenchmarkLinks(b *testing.B) {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&sb, `<div class="result"><a href="/url?q=https://news.example/story%d&sa=U">headline</a></div>`, i)
	}
	sb.WriteString("</body></html>")
	page := sb.String()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = Links(page, "https://www.google.com/search?q=x", "")
	}
}

func makeArticleHTML(paras int) string {
	builder := new(strings.Builder)
	builder.WriteString(`<html><head><title>demo</title></head><body>`)
	builder.WriteString(`<h1 class="headline">Clashes reported in the northern district</h1>`)
	builder.WriteString(`<span class="byline">Staff Reporter</span>`)
	builder.WriteString(`<time datetime="2024-03-05">March 5, 2024</time>`)
	builder.WriteString(`<div class="article-body">`)
	for i := 0; i < paras; i++ {
		fmt.Fprintf(builder, "<p>Witnesses described incident number %d near the market district early on Tuesday.</p>", i)
	}
	builder.WriteString("</div></body></html>")
	return builder.String()
}
