package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/opswatch/incidentd/cli/theme"
)

const maxWidth = 60
const minWidth = 40

// getTerminalWidth returns the terminal width capped at maxWidth.
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < minWidth {
		return maxWidth
	}
	if width > maxWidth {
		return maxWidth
	}
	return width
}

// wrapText wraps text to the specified width, preserving existing line breaks.
func wrapText(text string, width int) string {
	if width <= 0 {
		width = maxWidth
	}

	var result []string
	for _, paragraph := range strings.Split(text, "\n") {
		if len(paragraph) <= width {
			result = append(result, paragraph)
			continue
		}

		var line string
		for _, word := range strings.Fields(paragraph) {
			if line == "" {
				line = word
			} else if len(line)+1+len(word) <= width {
				line += " " + word
			} else {
				result = append(result, line)
				line = word
			}
		}
		if line != "" {
			result = append(result, line)
		}
	}
	return strings.Join(result, "\n")
}

// SetStyledHelp applies consistent incidentd styling to a command's help
// output. Call this on the root command before Execute().
func SetStyledHelp(cmd *cobra.Command) {
	cmd.SetHelpFunc(styledHelpFunc)
}

// parseDescription splits a command's long description into main text and examples.
func parseDescription(long string) (description string, examples string) {
	markers := []string{"\nExamples:\n", "\nExample:\n"}
	for _, marker := range markers {
		if idx := strings.Index(long, marker); idx != -1 {
			return strings.TrimSpace(long[:idx]), strings.TrimSpace(long[idx+len(marker):])
		}
	}
	return long, ""
}

func styledHelpFunc(cmd *cobra.Command, args []string) {
	t := theme.DefaultTheme
	section := t.Warning.Italic(true)
	width := getTerminalWidth() - 2

	fmt.Println(" " + t.Header.Render(strings.ToUpper(cmd.CommandPath())))

	var description, examples string
	if cmd.Long != "" {
		description, examples = parseDescription(cmd.Long)
	} else {
		description = cmd.Short
	}

	if description != "" {
		for _, line := range strings.Split(wrapText(description, width), "\n") {
			fmt.Println(" " + line)
		}
	}
	fmt.Println()

	if cmd.Runnable() {
		fmt.Println(" " + section.Render("USAGE"))
		fmt.Println("  " + t.Accent.Render(cmd.UseLine()))
		fmt.Println()
	}

	if len(cmd.Commands()) > 0 {
		fmt.Println(" " + section.Render("COMMANDS"))
		for _, sub := range cmd.Commands() {
			if sub.Hidden {
				continue
			}
			fmt.Printf("  %s  %s\n", t.Accent.Render(fmt.Sprintf("%-12s", sub.Name())), sub.Short)
		}
		fmt.Println()
	}

	flags := cmd.LocalFlags()
	if flags.HasAvailableFlags() {
		fmt.Println(" " + section.Render("FLAGS"))
		flags.VisitAll(func(f *pflag.Flag) {
			if f.Hidden {
				return
			}
			name := "--" + f.Name
			if f.Shorthand != "" {
				name = "-" + f.Shorthand + ", " + name
			}
			fmt.Printf("  %s  %s\n", t.Accent.Render(fmt.Sprintf("%-18s", name)), f.Usage)
		})
		fmt.Println()
	}

	if examples != "" {
		fmt.Println(" " + section.Render("EXAMPLES"))
		for _, line := range strings.Split(examples, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				fmt.Println()
				continue
			}
			if strings.HasPrefix(trimmed, "#") {
				fmt.Println("  " + t.Muted.Render(trimmed))
			} else {
				fmt.Println("  " + trimmed)
			}
		}
		fmt.Println()
	}

	if len(cmd.Commands()) > 0 {
		hint := fmt.Sprintf("Use '%s [command] --help' for more information.", cmd.CommandPath())
		fmt.Println(" " + t.Muted.Render(hint))
	}
}

// styledUsageFunc provides minimal usage output (shown on errors).
func styledUsageFunc(cmd *cobra.Command) error {
	return nil
}

// ApplyStyledHelpRecursive applies styled help and usage to a command and
// all its subcommands. Call this after all subcommands have been added.
func ApplyStyledHelpRecursive(cmd *cobra.Command) {
	cmd.SetHelpFunc(styledHelpFunc)
	cmd.SetUsageFunc(styledUsageFunc)
	for _, sub := range cmd.Commands() {
		ApplyStyledHelpRecursive(sub)
	}
}
