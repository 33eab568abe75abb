package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"refine-ai-api/internal/domain/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List categories, target models and output formats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat := catalog.Default()
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

		fmt.Fprintln(w, "CATEGORY\tLABEL\tPERSONAS")
		for _, c := range cat.Categories() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Label, strings.Join(cat.PersonaSuggestions(c.ID), ", "))
		}
		fmt.Fprintln(w)

		fmt.Fprintln(w, "PROVIDER\tMODEL\tMODALITY")
		for _, group := range cat.ModelsByProvider() {
			for _, m := range group.Models {
				fmt.Fprintf(w, "%s\t%s\t%s\n", group.Provider, m.Name, m.Modality)
			}
		}
		fmt.Fprintln(w)

		names := make([]string, 0, len(cat.Formats()))
		for _, f := range cat.Formats() {
			names = append(names, f.Name)
		}
		fmt.Fprintf(w, "FORMATS\t%s\n", strings.Join(names, ", "))
		return w.Flush()
	},
}
