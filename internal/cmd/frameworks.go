package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"vigilore/internal/bank"
)

// NewFrameworksCommand lists the available frameworks and their categories
func NewFrameworksCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "frameworks",
		Short: "List available compliance frameworks",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := bank.Load()
			if err != nil {
				return fmt.Errorf("loading question banks: %w", err)
			}

			cyan := color.New(color.FgCyan, color.Bold)
			gray := color.New(color.FgHiBlack)

			seen := make(map[string]bool)
			for _, name := range registry.Frameworks() {
				b, err := registry.Get(name)
				if err != nil || seen[b.Framework] {
					continue
				}
				seen[b.Framework] = true

				cyan.Println(b.Framework)
				gray.Printf("  %s\n", b.Title)
				fmt.Printf("  Questions: %d  Categories: %d\n", len(b.MainQuestions(nil)), len(b.Categories()))
				for _, c := range b.Categories() {
					fmt.Printf("    - %s\n", c)
				}
				fmt.Println()
			}
			return nil
		},
	}
}
