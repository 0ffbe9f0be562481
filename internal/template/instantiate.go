package template

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/specialistvlad/scenegrid/internal/pose"
	"github.com/specialistvlad/scenegrid/internal/scene"
	"github.com/zclconf/go-cty/cty"
)

// Instantiate returns a scene object built from t. The copy of the
// description handed to the simulator has its block label set to the
// object's unique name and its uid attribute set to token.
func Instantiate(t *Template, token string) (*scene.Object, error) {
	if len(token) < shortLen {
		return nil, &Error{Path: t.Path, Err: fmt.Errorf("token %q too short", token)}
	}

	f, diags := hclwrite.ParseConfig(t.source, t.Path, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, &Error{Path: t.Path, Err: diags}
	}

	name := t.Name + "_" + token[:shortLen]
	var block *hclwrite.Block
	for _, b := range f.Body().Blocks() {
		if b.Type() == "model" {
			block = b
			break
		}
	}
	if block == nil {
		return nil, &Error{Path: t.Path, Err: fmt.Errorf("model block not found")}
	}
	block.SetLabels([]string{name})
	block.Body().SetAttributeValue("uid", cty.StringVal(token))

	return &scene.Object{
		Name:      name,
		Token:     token,
		Template:  t.Name,
		Kind:      t.Kind,
		URI:       t.URI,
		Source:    f.Bytes(),
		Pose:      pose.Identity(),
		Bounds:    t.Bounds,
		Materials: append([]string(nil), t.Materials...),
	}, nil
}
