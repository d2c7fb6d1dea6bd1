// Package conditions resolves symbolic global tags ("auto:...") to
// concrete conditions tags and writes them into a process.
package conditions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/procfg/internal/ir"
	"github.com/roach88/procfg/internal/process"
	"github.com/roach88/procfg/internal/store"
)

const (
	// GlobalTagUnit is the conditions source unit a resolved tag is written to.
	GlobalTagUnit = "GlobalTag"
	// GlobalTagField is the parameter holding the tag.
	GlobalTagField = "globaltag"

	autoPrefix = "auto:"
	allSuffix  = "::All"
)

// Where a resolution came from.
const (
	SourceLiteral = "literal"
	SourceStore   = "store"
	SourceBuiltin = "builtin"
)

var builtin = map[string]string{
	"auto:mc":            "START62_V1",
	"auto:startup":       "START62_V1",
	"auto:com10":         "GR_R_62_V1",
	"auto:upgradePLS1":   "DES17_62_V7",
	"auto:upgradePLS3":   "POSTLS261_V3",
	"auto:upgrade2019":   "DES19_62_V7",
	"auto:upgradePhase2": "POSTLS261_V3",
}

// Aliases looks up stored aliases. *store.Store implements it.
type Aliases interface {
	Alias(ctx context.Context, alias string) (store.TagAlias, error)
}

// Resolution is the outcome of resolving one global tag.
type Resolution struct {
	Requested string `json:"requested"`
	Tag       string `json:"tag"`
	Source    string `json:"source"`
}

// Resolver resolves global tags against stored aliases first and the
// builtin table second.
type Resolver struct {
	aliases Aliases
}

// NewResolver creates a resolver. aliases may be nil.
func NewResolver(aliases Aliases) *Resolver {
	return &Resolver{aliases: aliases}
}

// Builtin returns the builtin alias table ordered by alias.
func Builtin() []store.TagAlias {
	out := make([]store.TagAlias, 0, len(builtin))
	for _, alias := range ir.SortedKeys(builtin) {
		out = append(out, store.TagAlias{Alias: alias, Tag: qualify(builtin[alias]), Comment: SourceBuiltin})
	}
	return out
}

// Resolve maps tag to a concrete global tag. Tags without the "auto:"
// prefix are taken literally. Concrete tags always carry the "::All" suffix.
func (r *Resolver) Resolve(ctx context.Context, tag string) (Resolution, error) {
	res := Resolution{Requested: tag}
	if tag == "" {
		return res, process.NewNotFoundError(tag, "global tags (empty tag)")
	}
	if !strings.HasPrefix(tag, autoPrefix) {
		res.Tag, res.Source = qualify(tag), SourceLiteral
		return res, nil
	}

	if r.aliases != nil {
		a, err := r.aliases.Alias(ctx, tag)
		switch {
		case err == nil:
			res.Tag, res.Source = qualify(a.Tag), SourceStore
			return res, nil
		case !errors.Is(err, store.ErrNotFound):
			return res, fmt.Errorf("resolve %s: %w", tag, err)
		}
	}

	if t, ok := builtin[tag]; ok {
		res.Tag, res.Source = qualify(t), SourceBuiltin
		return res, nil
	}
	return res, process.NewNotFoundError(tag, "global tag aliases")
}

// Apply resolves tag and writes it into the GlobalTag unit of p, which
// must already be registered (usually by FrontierConditions_GlobalTag_cff).
func (r *Resolver) Apply(ctx context.Context, p *process.Process, tag string) (Resolution, error) {
	res, err := r.Resolve(ctx, tag)
	if err != nil {
		return res, err
	}
	if err := p.Set(GlobalTagUnit, GlobalTagField, ir.String(res.Tag)); err != nil {
		return res, fmt.Errorf("global tag: %w", err)
	}
	p.SetGlobalTag(res.Tag)
	return res, nil
}

func qualify(tag string) string {
	if strings.HasSuffix(tag, allSuffix) {
		return tag
	}
	return tag + allSuffix
}
