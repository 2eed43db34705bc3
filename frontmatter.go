package markdoc

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/louiss0/tree-sitter-markdoc/tree"
)

// FrontmatterYAML returns the yaml node of the document's frontmatter. The node is nil when the
// document has no frontmatter or when its frontmatter did not parse.
func (r *Result) FrontmatterYAML() tree.Node {
	root := r.Tree.Root()
	if root.ChildCount() == 0 {
		return tree.Node{}
	}
	fm := root.Child(0)
	if fm.Kind() != tree.KindFrontmatter || fm.HasError() {
		return tree.Node{}
	}
	for _, c := range fm.NamedChildren() {
		if c.Kind() == tree.KindYAML {
			return c
		}
	}
	return tree.Node{}
}

// Frontmatter decodes the frontmatter of the document into v. It reports false when there is no
// frontmatter.
func (r *Result) Frontmatter(v any) (bool, error) {
	n := r.FrontmatterYAML()
	if n.IsNil() {
		return false, nil
	}
	return true, DecodeFrontmatter(n.Text(), v)
}

// DecodeFrontmatter decodes the YAML of a frontmatter block into v.
func DecodeFrontmatter(src []byte, v any) error {
	if err := yaml.Unmarshal(src, v); err != nil {
		return fmt.Errorf("invalid frontmatter: %w", err)
	}
	return nil
}
