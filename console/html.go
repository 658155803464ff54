package console

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

func attribute(node *html.Node, key string) string {
	if node == nil {
		return ""
	}
	for _, attr := range node.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func hasAttribute(node *html.Node, key string) bool {
	if node == nil {
		return false
	}
	for _, attr := range node.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}

// Depth-first, document order.
func walk(node *html.Node, visit func(*html.Node) bool) bool {
	if node == nil {
		return false
	}
	if !visit(node) {
		return false
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if !walk(child, visit) {
			return false
		}
	}
	return true
}

func findByID(root *html.Node, id string) *html.Node {
	var found *html.Node
	walk(root, func(node *html.Node) bool {
		if node.Type == html.ElementNode && attribute(node, "id") == id {
			found = node
			return false
		}
		return true
	})
	return found
}

// Descendants only, the root itself is never included.
func findAllByTag(root *html.Node, tag string) []*html.Node {
	var found []*html.Node
	if root == nil {
		return nil
	}
	for child := root.FirstChild; child != nil; child = child.NextSibling {
		walk(child, func(node *html.Node) bool {
			if node.Type == html.ElementNode && node.Data == tag {
				found = append(found, node)
			}
			return true
		})
	}
	return found
}

func findAncestor(node *html.Node, tag string) *html.Node {
	for parent := node.Parent; parent != nil; parent = parent.Parent {
		if parent.Type == html.ElementNode && parent.Data == tag {
			return parent
		}
	}
	return nil
}

// Visible-ish text, whitespace collapsed.
func textContent(node *html.Node) string {
	var builder strings.Builder
	walk(node, func(current *html.Node) bool {
		if current.Type == html.TextNode && !insideTag(current, "script", "style") {
			builder.WriteString(current.Data)
			builder.WriteByte(' ')
		}
		return true
	})
	return strings.Join(strings.Fields(builder.String()), " ")
}

func insideTag(node *html.Node, tags ...string) bool {
	for parent := node.Parent; parent != nil; parent = parent.Parent {
		if parent.Type != html.ElementNode {
			continue
		}
		for _, tag := range tags {
			if parent.Data == tag {
				return true
			}
		}
	}
	return false
}

// Where activating the element leads: its own link, a link inside it or around it.
func linkTarget(node *html.Node) string {
	candidates := []string{attribute(node, "href"), attribute(node, "data-url"), attribute(node, "url")}
	for _, anchor := range findAllByTag(node, "a") {
		candidates = append(candidates, attribute(anchor, "href"))
	}
	if anchor := findAncestor(node, "a"); anchor != nil {
		candidates = append(candidates, attribute(anchor, "href"))
	}
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" || candidate == "#" || strings.HasPrefix(strings.ToLower(candidate), "javascript:") {
			continue
		}
		return candidate
	}
	return ""
}

// Values a browser would submit for the form, excluding buttons.
func formValues(form *html.Node) url.Values {
	values := make(url.Values)
	for _, input := range findAllByTag(form, "input") {
		name := attribute(input, "name")
		if name == "" {
			continue
		}
		switch strings.ToLower(attribute(input, "type")) {
		case "submit", "button", "image", "reset", "file":
			continue
		case "checkbox", "radio":
			if !hasAttribute(input, "checked") {
				continue
			}
		}
		values.Add(name, attribute(input, "value"))
	}
	return values
}

// Submitted field name of an input, falling back to its ID.
func fieldName(input *html.Node) string {
	if name := attribute(input, "name"); name != "" {
		return name
	}
	return attribute(input, "id")
}
