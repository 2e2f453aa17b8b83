package sandbox

import (
	"bytes"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is the sandbox's DOM: a parsed HTML tree with a preview
// container that mounted applications render into.
type Document struct {
	mu          sync.RWMutex
	root        *html.Node
	head        *html.Node
	body        *html.Node
	container   *html.Node
	containerID string
}

// NewDocument creates a document with an empty container element
func NewDocument(containerID string) *Document {
	if containerID == "" {
		containerID = DefaultConfig().ContainerID
	}
	d := &Document{containerID: containerID}
	d.reset()
	return d
}

func (d *Document) reset() {
	d.root = &html.Node{Type: html.DocumentNode}
	htmlEl := newElement("html")
	d.head = newElement("head")
	d.body = newElement("body")
	d.container = newElement("div")
	d.container.Attr = []html.Attribute{{Key: "id", Val: d.containerID}}

	d.root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	d.root.AppendChild(htmlEl)
	htmlEl.AppendChild(d.head)
	htmlEl.AppendChild(d.body)
	d.body.AppendChild(d.container)
}

func newElement(tag string) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
}

// Container returns the preview container element
func (d *Document) Container() *html.Node {
	return d.container
}

// Body returns the body element
func (d *Document) Body() *html.Node {
	return d.body
}

// AppendScript attaches an inline script element to the body
func (d *Document) AppendScript(code string) *html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()

	script := newElement("script")
	script.Attr = []html.Attribute{{Key: "data-bundle", Val: "true"}}
	script.AppendChild(&html.Node{Type: html.TextNode, Data: code})
	d.body.AppendChild(script)
	return script
}

// Remove detaches a node; false when it was not attached
func (d *Document) Remove(n *html.Node) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n == nil || n.Parent == nil {
		return false
	}
	n.Parent.RemoveChild(n)
	return true
}

// Contains reports whether n is attached to this document
func (d *Document) Contains(n *html.Node) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for p := n; p != nil; p = p.Parent {
		if p == d.root {
			return true
		}
	}
	return false
}

// ClearContainer removes every child of the container
func (d *Document) ClearContainer() {
	d.mu.Lock()
	defer d.mu.Unlock()
	clearChildren(d.container)
}

func clearChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

// ContainerHTML renders the container's inner HTML
func (d *Document) ContainerHTML() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return innerHTML(d.container)
}

// HTML renders the whole document
func (d *Document) HTML() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var buf bytes.Buffer
	_ = html.Render(&buf, d.root)
	return buf.String()
}

func innerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// Selection returns a goquery selection rooted at the document
func (d *Document) Selection() *goquery.Selection {
	return goquery.NewDocumentFromNode(d.root).Selection
}

// Query returns nodes matching a CSS selector
func (d *Document) Query(selector string) []*html.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.Selection().Find(selector).Nodes
}

// ScriptCount returns how many bundle scripts are attached
func (d *Document) ScriptCount() int {
	return len(d.Query("script[data-bundle]"))
}

// Reset rebuilds an empty document
func (d *Document) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
}

// attr returns an attribute value
func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// setAttr sets or replaces an attribute value
func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// removeAttr drops an attribute
func removeAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

// textContent concatenates descendant text
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
