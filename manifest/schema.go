package manifest

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// schemaSource constrains bfi.toml. #Manifest is a definition, so unknown
// keys at any level are rejected.
const schemaSource = `
#Manifest: {
	machine?: {
		"tape-size"?:   int & >0 & <=16777216
		"stack-depth"?: int & >0 & <=65536
		"max-steps"?:   int & >=0
	}
	source?: {
		"fold-whitespace"?: bool
	}
	server?: {
		addr?:         string & !=""
		workers?:      int & >0 & <=1024
		"max-source"?: int & >0
	}
	history?: {
		enabled?: bool
		path?:    string & !=""
	}
}
`

// validate checks decoded TOML against the schema.
func validate(raw map[string]any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("bfi.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Manifest"))
	v := def.Unify(ctx.Encode(raw))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
