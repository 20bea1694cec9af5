// Command ivmdemo builds a tiny issues/comments pipeline (source, join,
// view), pushes a handful of source changes, and prints the view's
// output after every cascade — a runnable version of spec §8's
// comment-join scenario.
package main

import (
	"encoding/json"
	"log"

	"github.com/kasuganosora/ivmsync/internal/ivm/change"
	"github.com/kasuganosora/ivmsync/internal/ivm/operators"
	"github.com/kasuganosora/ivmsync/internal/ivm/row"
	"github.com/kasuganosora/ivmsync/internal/ivm/source"
	"github.com/kasuganosora/ivmsync/internal/ivm/view"
)

func main() {
	issues, err := source.New(source.Schema{
		Name:       "issues",
		Columns:    []row.Column{{Name: "id"}, {Name: "title"}},
		PrimaryKey: row.PrimaryKey{"id"},
	})
	if err != nil {
		log.Fatal(err)
	}
	comments, err := source.New(source.Schema{
		Name:       "comments",
		Columns:    []row.Column{{Name: "id"}, {Name: "issueID"}, {Name: "body"}},
		PrimaryKey: row.PrimaryKey{"id"},
	})
	if err != nil {
		log.Fatal(err)
	}

	issuesIn := issues.Connect(row.Ordering{{Column: "id", Direction: row.Ascending}})
	commentsIn := comments.Connect(row.Ordering{{Column: "id", Direction: row.Ascending}})

	joined := operators.NewJoin(operators.JoinConfig{
		Parent:           issuesIn,
		ParentKey:        "id",
		ParentPrimaryKey: row.PrimaryKey{"id"},
		Child:            commentsIn,
		ChildKey:         "issueID",
		RelationshipName: "comments",
	})

	v := view.New(joined, nil)
	v.AddListener(func(batch []change.Change) {
		for _, c := range batch {
			log.Printf("view change: %s", c.Kind)
		}
		printView(v)
	})

	must(v.Hydrate())
	v.Flush()

	must(issues.Push(change.NewSourceAdd(row.Row{"id": "i1", "title": "bug report"})))
	v.Flush()

	must(comments.Push(change.NewSourceAdd(row.Row{"id": "c1", "issueID": "i1", "body": "looks real"})))
	v.Flush()

	must(issues.Push(change.NewSourceRemove(row.Row{"id": "i1", "title": "bug report"})))
	v.Flush()
}

func printView(v *view.View) {
	out := make([]map[string]interface{}, 0)
	for _, n := range v.Rows() {
		m := map[string]interface{}{}
		for k, val := range n.Row {
			m[k] = val
		}
		for relName, seq := range n.Relationships {
			var children []map[string]interface{}
			for {
				cn, ok := seq.Next()
				if !ok {
					break
				}
				cm := map[string]interface{}{}
				for k, val := range cn.Row {
					cm[k] = val
				}
				children = append(children, cm)
			}
			m[relName] = children
		}
		out = append(out, m)
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	log.Printf("current view:\n%s", data)
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
