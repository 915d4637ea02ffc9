package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

func init() {
	Languages["python"] = &Language{
		Name:           "python",
		Extensions:     []string{".py"},
		lang:           python.GetLanguage(),
		EnclosingClass: pythonFindEnclosingClass,
		IsNested:       pythonIsNested,
		Docstring:      pythonDocstring,
		Decorators:     pythonDecorators,
	}
}

func pythonFindEnclosingClass(funcNode *sitter.Node) *sitter.Node {
	parent := funcNode.Parent()
	if parent == nil {
		return nil
	}

	// Direct: func -> block -> class_definition
	if parent.Type() == "block" && parent.Parent() != nil && parent.Parent().Type() == "class_definition" {
		return parent.Parent()
	}

	// Decorated: func -> decorated_definition -> block -> class_definition
	if parent.Type() == "decorated_definition" {
		gp := parent.Parent()
		if gp != nil && gp.Type() == "block" && gp.Parent() != nil && gp.Parent().Type() == "class_definition" {
			return gp.Parent()
		}
	}

	return nil
}

// pythonIsNested reports definitions inside function bodies and classes
// inside other classes, neither of which the API tree can hold.
func pythonIsNested(node *sitter.Node) bool {
	classes := 0
	for current := node.Parent(); current != nil; current = current.Parent() {
		switch current.Type() {
		case "function_definition":
			return true
		case "class_definition":
			classes++
		}
	}
	if node.Type() == "class_definition" {
		return classes > 0
	}
	return classes > 1
}

// pythonDocstring returns the leading string literal of a module or a
// definition body with its quotes and surrounding whitespace removed.
func pythonDocstring(node *sitter.Node, source []byte) string {
	body := node
	if node.Type() != "module" {
		body = node.ChildByFieldName("body")
	}
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str.Type() != "string" {
		return ""
	}
	return unquote(NodeText(str, source))
}

func unquote(lit string) string {
	lit = strings.TrimLeft(lit, "rRuUbBfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(lit) >= 2*len(q) && strings.HasPrefix(lit, q) && strings.HasSuffix(lit, q) {
			lit = lit[len(q) : len(lit)-len(q)]
			break
		}
	}
	return strings.TrimSpace(lit)
}

func pythonDecorators(node *sitter.Node, source []byte) []string {
	parent := node.Parent()
	if parent == nil || parent.Type() != "decorated_definition" {
		return nil
	}
	var out []string
	for i := 0; i < int(parent.NamedChildCount()); i++ {
		child := parent.NamedChild(i)
		if child.Type() != "decorator" {
			continue
		}
		text := strings.TrimPrefix(NodeText(child, source), "@")
		out = append(out, CollapseWhitespace(text))
	}
	return out
}
