package extract

import (
	"strings"
	"testing"

	"github.com/osintscope/eventsearch/internal/model"
)

func TestFromHTML_SelectorMode(t *testing.T) {
	page := `<!doctype html>
	<html>
	  <head><title>Wire Page</title></head>
	  <body>
	    <h1 class="headline">Convoy attacked near the capital</h1>
	    <span class="byline">Field Desk</span>
	    <time datetime="2024-03-05">5 March 2024</time>
	    <div class="article-body">
	      <p>Short.</p>
	      <p>The convoy was attacked on the road to the capital on Tuesday.</p>
	      <p>The convoy was attacked on the road to the capital on Tuesday.</p>
	      <p>Officials confirmed three vehicles were destroyed in the ambush.</p>
	    </div>
	  </body>
	</html>`

	doc := FromHTML(page, model.Selectors{
		Title:   "h2.missing, h1.headline",
		Content: ".article-body",
		Date:    "time",
		Author:  ".byline",
	})

	if doc.Title != "Convoy attacked near the capital" {
		t.Fatalf("title = %q", doc.Title)
	}
	want := "The convoy was attacked on the road to the capital on Tuesday.\n\n" +
		"Officials confirmed three vehicles were destroyed in the ambush."
	if doc.Content != want {
		t.Fatalf("content = %q, want %q", doc.Content, want)
	}
	if doc.Date != "2024-03-05" {
		t.Fatalf("date = %q, want datetime attribute", doc.Date)
	}
	if doc.Author != "Field Desk" {
		t.Fatalf("author = %q", doc.Author)
	}
}

func TestFromHTML_GenericFallback(t *testing.T) {
	page := `<!doctype html>
	<html>
	  <head><title>Fallback Title</title></head>
	  <body>
	    <h1>Blast damages market stalls</h1>
	    <div class="byline">A. Reporter</div>
	    <article>
	      <p>An explosion damaged several stalls in the central market.</p>
	      <p>No group has claimed responsibility for the blast so far.</p>
	    </article>
	  </body>
	</html>`

	doc := FromHTML(page, model.Selectors{})
	if doc.Title != "Blast damages market stalls" {
		t.Fatalf("generic title = %q", doc.Title)
	}
	if !strings.Contains(doc.Content, "damaged several stalls") ||
		!strings.Contains(doc.Content, "claimed responsibility") {
		t.Fatalf("generic content = %q", doc.Content)
	}
	if doc.Author != "A. Reporter" {
		t.Fatalf("generic author = %q", doc.Author)
	}
}

func TestFromHTML_GenericContentUnionOfParagraphs(t *testing.T) {
	page := `<html><body>
	  <div><p>First loose paragraph about the incident.</p></div>
	  <div><p>Second loose paragraph with more detail.</p></div>
	</body></html>`

	doc := FromHTML(page, model.Selectors{})
	if !strings.Contains(doc.Content, "First loose paragraph") ||
		!strings.Contains(doc.Content, "Second loose paragraph") {
		t.Fatalf("expected union of <p> text, got %q", doc.Content)
	}
}

func TestFromHTML_SelectorMissesFallToGeneric(t *testing.T) {
	page := `<html><body>
	  <h1>Observed headline</h1>
	  <article><p>Body paragraph long enough to keep around for the test.</p></article>
	</body></html>`

	doc := FromHTML(page, model.Selectors{Title: ".no-such-node", Content: ".also-missing"})
	if doc.Title != "Observed headline" {
		t.Fatalf("title fallback = %q", doc.Title)
	}
	if !strings.Contains(doc.Content, "Body paragraph long enough") {
		t.Fatalf("content fallback = %q", doc.Content)
	}
}

func TestLinks_UnwrapsRedirectsAndFilters(t *testing.T) {
	page := `<html><body>
	  <a href="/url?q=https://news.example/story1&sa=U&ved=abc">one</a>
	  <a href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fnews.example%2Fstory2&rut=xyz">two</a>
	  <a href="https://news.example/story3">three</a>
	  <a href="https://news.example/story3">three again</a>
	  <a href="/local/story4">four</a>
	  <a href="mailto:tips@news.example">mail</a>
	  <a href="javascript:void(0)">js</a>
	  <a href="#top">anchor</a>
	</body></html>`

	got := Links(page, "https://search.example/results", "")
	want := []string{
		"https://news.example/story1",
		"https://news.example/story2",
		"https://news.example/story3",
		"https://search.example/local/story4",
	}
	if len(got) != len(want) {
		t.Fatalf("links = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("link %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLinks_SelectorScoping(t *testing.T) {
	page := `<html><body>
	  <div class="result"><a href="https://news.example/kept">kept</a></div>
	  <a href="https://news.example/skipped">skipped</a>
	</body></html>`

	got := Links(page, "https://search.example/", "div.result")
	if len(got) != 1 || got[0] != "https://news.example/kept" {
		t.Fatalf("scoped links = %v", got)
	}
}

func TestCleanText(t *testing.T) {
	in := "Officials\x00 said  [Read more]  the\tblast “destroyed” stalls \U0001F600 nearby."
	got := CleanText(in)
	want := "Officials said the blast “destroyed” stalls nearby."
	if got != want {
		t.Fatalf("CleanText = %q, want %q", got, want)
	}
}

func TestCleanText_KeepsParagraphBreaks(t *testing.T) {
	got := CleanText("First paragraph.\n\n\n\nSecond paragraph.")
	want := "First paragraph.\n\nSecond paragraph."
	if got != want {
		t.Fatalf("CleanText = %q, want %q", got, want)
	}
}

func TestValidContent(t *testing.T) {
	if ValidContent("too short", "https://example.com/a") {
		t.Fatalf("short content accepted")
	}
	long := strings.Repeat("A reasonable sentence about the reported incident. ", 5)
	if !ValidContent(long, "https://example.com/b") {
		t.Fatalf("long content rejected")
	}
}
