package htmlutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const resultsPage = `<html><body>
<div class="s-result-item" data-asin="B0ABC12345">
  <h2><a class="a-link-normal" href="/dp/B0ABC12345"><span>The Expanse  Book 1</span></a></h2>
</div>
<div class="s-result-item" data-asin="">
  <h2>Sponsored</h2>
</div>
<div class="s-result-item other" data-asin="B0XYZ98765">
  <h2><a href="/dp/B0XYZ98765"><span>Caliban's War</span></a></h2>
</div>
</body></html>`

func TestNodeHelpers(t *testing.T) {
	t.Parallel()

	doc, err := html.Parse(strings.NewReader(resultsPage))
	require.NoError(t, err)

	items := FindAll(doc, func(n *html.Node) bool {
		return HasClass(n, "s-result-item") && Attr(n, "data-asin") != ""
	})
	require.Len(t, items, 2)

	assert.Equal(t, "B0ABC12345", Attr(items[0], "data-asin"))
	link := FindFirst(items[0], func(n *html.Node) bool { return n.Data == "a" })
	require.NotNil(t, link)
	assert.Equal(t, "/dp/B0ABC12345", Attr(link, "href"))
	assert.Equal(t, "The Expanse Book 1", Text(link))

	assert.True(t, HasClass(items[1], "other"))
	assert.Equal(t, "", Attr(items[1], "missing"))
	assert.Nil(t, FindFirst(items[1], func(n *html.Node) bool { return n.Data == "table" }))
	assert.Equal(t, "", Text(nil))
}
