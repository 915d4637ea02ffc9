// Package parse extracts API declarations from Python source files using
// tree-sitter.
package parse

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/apicurate/internal/lang"
	"github.com/phobologic/apicurate/internal/model"
)

const (
	captureName     = "name"
	captureClass    = "definition.class"
	captureFunction = "definition.function"
)

// ExtractModule parses one source file and returns the module declaration
// named module with its top-level classes, their methods and the module's
// functions. The parser must be created for l and query must be l's
// definition query.
func ExtractModule(l *lang.Language, parser *sitter.Parser, query *sitter.Query, source []byte, module string) *model.RawDeclaration {
	mod := &model.RawDeclaration{Kind: model.Module, Name: module}
	if len(source) == 0 {
		return mod
	}

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		log.Warn().Err(err).Str("module", module).Msg("parse failed")
		return mod
	}
	defer tree.Close()

	mod.Description = l.Docstring(tree.RootNode(), source)

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, tree.RootNode())

	classes := make(map[uint32]*model.RawDeclaration)

	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		match = qc.FilterPredicates(match, source)

		var nameNode, defNode *sitter.Node
		var kind string
		for _, c := range match.Captures {
			switch cname := query.CaptureNameForId(c.Index); cname {
			case captureName:
				nameNode = c.Node
			case captureClass, captureFunction:
				kind = cname
				defNode = c.Node
			}
		}
		if nameNode == nil || defNode == nil || l.IsNested(defNode) {
			continue
		}
		name := lang.NodeText(nameNode, source)

		switch kind {
		case captureClass:
			cls := &model.RawDeclaration{
				Kind:         model.Class,
				Name:         name,
				Description:  l.Docstring(defNode, source),
				Decorators:   l.Decorators(defNode, source),
				Superclasses: superclasses(defNode, source),
			}
			if appendUnique(&mod.Classes, cls) {
				classes[defNode.StartByte()] = cls
			}
		case captureFunction:
			owner := l.EnclosingClass(defNode)
			fn := extractFunction(l, defNode, source, name, owner != nil)
			if owner == nil {
				appendUnique(&mod.Functions, fn)
				continue
			}
			if cls, ok := classes[owner.StartByte()]; ok {
				appendUnique(&cls.Methods, fn)
			}
		}
	}

	return mod
}

// appendUnique adds d unless a sibling of the same name exists, as happens
// with property setters and overloads. The first definition wins.
func appendUnique(list *[]*model.RawDeclaration, d *model.RawDeclaration) bool {
	for _, other := range *list {
		if other.Name == d.Name {
			log.Debug().Str("name", d.Name).Msg("skipping redefinition")
			return false
		}
	}
	*list = append(*list, d)
	return true
}

func superclasses(node *sitter.Node, source []byte) []string {
	args := node.ChildByFieldName("superclasses")
	if args == nil {
		return nil
	}
	var out []string
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg.Type() == "keyword_argument" || arg.Type() == "comment" {
			continue
		}
		out = append(out, lang.CollapseWhitespace(lang.NodeText(arg, source)))
	}
	return out
}

func extractFunction(l *lang.Language, node *sitter.Node, source []byte, name string, isMethod bool) *model.RawDeclaration {
	fn := &model.RawDeclaration{
		Kind:        model.Function,
		Name:        name,
		Description: l.Docstring(node, source),
		Decorators:  l.Decorators(node, source),
	}
	if rt := node.ChildByFieldName("return_type"); rt != nil {
		fn.Results = []string{lang.CollapseWhitespace(lang.NodeText(rt, source))}
	}
	implicit := isMethod && !hasDecorator(fn.Decorators, "staticmethod")
	fn.Parameters = extractParameters(node.ChildByFieldName("parameters"), source, implicit)
	return fn
}

func hasDecorator(decorators []string, name string) bool {
	for _, d := range decorators {
		if d == name {
			return true
		}
	}
	return false
}

// extractParameters reads a parameter list. "/" makes the parameters before
// it positional-only, "*" and "*args" make the ones after it keyword-only.
// Variadic parameters themselves are not part of the API tree.
func extractParameters(params *sitter.Node, source []byte, implicitFirst bool) []*model.RawDeclaration {
	if params == nil {
		return nil
	}
	var out []*model.RawDeclaration
	mode := model.PositionOrName

	for i := 0; i < int(params.NamedChildCount()); i++ {
		child := params.NamedChild(i)
		p := &model.RawDeclaration{Kind: model.Parameter}

		switch child.Type() {
		case "positional_separator":
			for _, prev := range out {
				if prev.AssignedBy == model.PositionOrName {
					prev.AssignedBy = model.PositionOnly
				}
			}
			continue
		case "keyword_separator", "list_splat_pattern":
			mode = model.NameOnly
			continue
		case "dictionary_splat_pattern":
			continue
		case "identifier":
			p.Name = lang.NodeText(child, source)
		case "typed_parameter":
			inner := child.NamedChild(0)
			switch inner.Type() {
			case "list_splat_pattern":
				mode = model.NameOnly
				continue
			case "dictionary_splat_pattern":
				continue
			}
			p.Name = lang.NodeText(inner, source)
			p.TypeHint = typeText(child, source)
		case "default_parameter", "typed_default_parameter":
			p.Name = lang.NodeText(child.ChildByFieldName("name"), source)
			p.TypeHint = typeText(child, source)
			if v := child.ChildByFieldName("value"); v != nil {
				def := lang.CollapseWhitespace(lang.NodeText(v, source))
				p.DefaultValue = &def
			}
		default:
			continue
		}

		p.AssignedBy = mode
		if implicitFirst && len(out) == 0 && p.AssignedBy != model.NameOnly {
			p.AssignedBy = model.Implicit
		}
		out = append(out, p)
	}
	return out
}

func typeText(node *sitter.Node, source []byte) string {
	if t := node.ChildByFieldName("type"); t != nil {
		return lang.CollapseWhitespace(lang.NodeText(t, source))
	}
	return ""
}

// Package assembles extracted modules into a package snapshot. Modules are
// ordered by name.
func Package(name, version string, modules []*model.RawDeclaration) *model.RawDeclaration {
	sorted := append([]*model.RawDeclaration(nil), modules...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return &model.RawDeclaration{
		Kind:         model.Package,
		Name:         name,
		Distribution: name,
		Version:      version,
		Modules:      sorted,
	}
}
