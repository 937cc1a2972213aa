// Package collation rewrites the table-level COLLATE option of CREATE TABLE statements.
package collation

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/stokaro/schemasync/config"
)

// collateOption matches a COLLATE=<name> table option together with the
// whitespace in front of it.
var collateOption = regexp.MustCompile(`(?i)\s*COLLATE=[a-z0-9_\-]+`)

// collateKeyword locates every COLLATE= in a statement, whatever its case.
var collateKeyword = regexp.MustCompile(`(?i)COLLATE=`)

type rule struct {
	// from is the case-folded collation name.
	from string
	to   string
}

// Rewriter applies the collate substitution rules and the omit-collation option
// of a SyncOptions to CREATE TABLE statements.
type Rewriter struct {
	rules []rule
	omit  bool
}

// New validates the substitution rules and folds their names in order.
func New(opts *config.SyncOptions) (*Rewriter, error) {
	if opts == nil {
		opts = config.DefaultSyncOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	fold := cases.Fold()
	rw := &Rewriter{omit: opts.OmitCollation}
	for _, sub := range opts.CollateSubstitutions {
		rw.rules = append(rw.rules, rule{from: fold.String(sub.From), to: sub.To})
	}
	return rw, nil
}

// Rewrite returns the statement with its collation rewritten:
//   - the first rule whose COLLATE=<from> occurs in the statement (ignoring case)
//     replaces those occurrences with COLLATE=<to>, and no further rules are tried
//   - otherwise, with omit-collation set, every COLLATE=<name> option is removed
//   - otherwise the statement is returned unchanged
func (rw *Rewriter) Rewrite(create string) string {
	if len(rw.rules) > 0 {
		keywords := collateKeyword.FindAllStringIndex(create, -1)
		fold := cases.Fold()
		for _, r := range rw.rules {
			if out, ok := r.apply(fold, create, keywords); ok {
				return out
			}
		}
	}

	if rw.omit {
		return collateOption.ReplaceAllString(create, "")
	}
	return create
}

// apply replaces every COLLATE=<from> occurrence and reports whether there was one.
func (r rule) apply(fold cases.Caser, create string, keywords [][]int) (string, bool) {
	var b strings.Builder
	last := 0
	for _, kw := range keywords {
		name := kw[1]
		end := name + len(r.from)
		if end > len(create) || fold.String(create[name:end]) != r.from {
			continue
		}
		b.WriteString(create[last:kw[0]])
		b.WriteString("COLLATE=")
		b.WriteString(r.to)
		last = end
	}
	if last == 0 {
		return "", false
	}
	b.WriteString(create[last:])
	return b.String(), true
}
