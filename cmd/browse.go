// File: cmd/browse.go
package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/antchfx/htmlquery"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/markhobson/microbrowser-sub000/pkg/microbrowser"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newGetCmd() *cobra.Command {
	var showHTML bool
	cmd := &cobra.Command{
		Use:   "get <url>",
		Short: "Loads a page and prints its URL and cookies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, release, err := openDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer release()
			return printDocument(cmd.OutOrStdout(), doc, showHTML)
		},
	}
	cmd.Flags().BoolVar(&showHTML, "html", false, "print the parsed HTML (headless engine only)")
	return cmd
}

func newLinksCmd() *cobra.Command {
	var rel string
	var follow bool
	cmd := &cobra.Command{
		Use:   "links <url>",
		Short: "Lists the links of a page with the given relation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, release, err := openDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer release()

			out := cmd.OutOrStdout()
			if follow {
				link, err := doc.Link(rel)
				if err != nil {
					return err
				}
				next, err := link.Follow(cmd.Context())
				if err != nil {
					return err
				}
				return printDocument(out, next, false)
			}

			links, err := doc.Links(rel)
			if err != nil {
				return err
			}
			for _, l := range links {
				href := ""
				if u := l.Href(); u != nil {
					href = u.String()
				}
				fmt.Fprintf(out, "%s\t%s\n", l.Rel(), href)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rel, "rel", "", "link relation to match (required)")
	cmd.Flags().BoolVar(&follow, "follow", false, "follow the first matching link and print the result")
	_ = cmd.MarkFlagRequired("rel")
	return cmd
}

// itemOutput is the printed form of a microdata item.
type itemOutput struct {
	Type       string              `json:"type"`
	ID         string              `json:"id,omitempty"`
	Properties map[string][]string `json:"properties"`
}

func newItemsCmd() *cobra.Command {
	var (
		itemType string
		props    []string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "items <url>",
		Short: "Prints the microdata items of a page with the given type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, release, err := openDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer release()

			items, err := doc.Items(itemType)
			if err != nil {
				return err
			}

			outputs := make([]itemOutput, 0, len(items))
			for _, item := range items {
				o, err := describeItem(item, props)
				if err != nil {
					return err
				}
				outputs = append(outputs, o)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(outputs)
			}
			for _, o := range outputs {
				fmt.Fprintf(out, "%s %s\n", o.Type, o.ID)
				names := make([]string, 0, len(o.Properties))
				for name := range o.Properties {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(out, "  %s: %s\n", name, strings.Join(o.Properties[name], ", "))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&itemType, "type", "", "absolute item type URL (required)")
	cmd.Flags().StringSliceVarP(&props, "prop", "p", nil, "property names to print")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print items as JSON")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func describeItem(item *microbrowser.MicrodataItem, props []string) (itemOutput, error) {
	o := itemOutput{Type: item.Type(), Properties: make(map[string][]string)}
	if id := item.ID(); id != nil {
		o.ID = id.String()
	}
	for _, name := range props {
		values, err := item.Properties(name)
		if err != nil {
			return o, err
		}
		for _, v := range values {
			o.Properties[name] = append(o.Properties[name], v.Value())
		}
	}
	return o, nil
}

func newSubmitCmd() *cobra.Command {
	var (
		formName string
		sets     []string
		params   []string
		showHTML bool
	)
	cmd := &cobra.Command{
		Use:   "submit <url>",
		Short: "Fills in a form of a page, submits it and prints the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, release, err := openDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer release()

			form, err := doc.Form(formName)
			if err != nil {
				return err
			}

			values, err := parseAssignments(sets)
			if err != nil {
				return err
			}
			for _, a := range values {
				if err := applyAssignment(form, a); err != nil {
					return err
				}
			}

			overrides, err := parseAssignments(params)
			if err != nil {
				return err
			}
			for _, a := range overrides {
				if err := form.SetParameter(a.name, a.values[len(a.values)-1]); err != nil {
					return err
				}
			}

			next, err := form.Submit(cmd.Context())
			if err != nil {
				return err
			}
			return printDocument(cmd.OutOrStdout(), next, showHTML)
		},
	}
	cmd.Flags().StringVarP(&formName, "form", "f", "", "form name (required)")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "control value as name=value; repeat a name for several values")
	cmd.Flags().StringArrayVar(&params, "param", nil, "submitted parameter override as name=value")
	cmd.Flags().BoolVar(&showHTML, "html", false, "print the parsed HTML of the result (headless engine only)")
	_ = cmd.MarkFlagRequired("form")
	return cmd
}

type assignment struct {
	name   string
	values []string
}

// parseAssignments groups name=value pairs by name, keeping first-seen order.
func parseAssignments(raw []string) ([]assignment, error) {
	var out []assignment
	index := make(map[string]int)
	for _, r := range raw {
		name, value, ok := strings.Cut(r, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid assignment %q: expected name=value", r)
		}
		if i, seen := index[name]; seen {
			out[i].values = append(out[i].values, value)
			continue
		}
		index[name] = len(out)
		out = append(out, assignment{name: name, values: []string{value}})
	}
	return out, nil
}

// applyAssignment checks the listed values of a checkable group and sets the
// first control of any other group to the last listed value.
func applyAssignment(form *microbrowser.Form, a assignment) error {
	group, err := form.ControlGroup(a.name)
	if err != nil {
		return err
	}
	if _, ok := group.Controls()[0].(microbrowser.CheckableControl); ok {
		return group.SetValues(a.values...)
	}
	return form.SetControlValue(a.name, a.values[len(a.values)-1])
}

func printDocument(out io.Writer, doc *microbrowser.Document, showHTML bool) error {
	fmt.Fprintln(out, doc.URL().String())

	cookies, err := doc.Cookies()
	if err != nil {
		return err
	}
	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "cookie %s=%s\n", name, cookies[name])
	}

	if !showHTML {
		return nil
	}
	var root *html.Node
	if err := doc.Unwrap(&root); err != nil {
		return fmt.Errorf("--html needs the headless engine: %w", err)
	}
	fmt.Fprintln(out, htmlquery.OutputHTML(root, true))
	return nil
}
