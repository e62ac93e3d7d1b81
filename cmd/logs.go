package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"

	"github.com/opswatch/incidentd/cli"
	"github.com/opswatch/incidentd/cli/theme"
	"github.com/opswatch/incidentd/pkg/paths"
)

// NewLogsCmd creates the `logs` command.
func NewLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		Long: `Streams log lines from the incidentd daemon log file.

Examples:
  # Follow daemon logs
  incidentd logs -f

  # Show the last 100 log lines in JSON Lines format
  incidentd logs --tail 100 --json
`,
		RunE: runLogsE,
	}

	cmd.Flags().Bool("json", false, "Output logs in JSON Lines format")
	cmd.Flags().BoolP("follow", "f", false, "Follow log output")
	cmd.Flags().Int("tail", -1, "Number of lines to show from the end of the logs (default: all)")

	return cmd
}

func runLogsE(cmd *cobra.Command, args []string) error {
	opts := cli.GetOptions(cmd)

	follow, _ := cmd.Flags().GetBool("follow")
	tailLines, _ := cmd.Flags().GetInt("tail")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	logFile := paths.LogFilePath("daemon")
	if _, err := os.Stat(logFile); err != nil {
		if !follow {
			return fmt.Errorf("no daemon log file at %s", logFile)
		}
		// When following we wait for the daemon to create the file.
	}

	offset, err := tailOffset(logFile, tailLines)
	if err != nil {
		return err
	}

	t, err := tail.TailFile(logFile, tail.Config{
		Follow:   follow,
		ReOpen:   follow,
		Location: &tail.SeekInfo{Offset: offset, Whence: io.SeekStart},
		Logger:   stdlog.New(io.Discard, "", 0),
	})
	if err != nil {
		return fmt.Errorf("failed to tail %s: %w", logFile, err)
	}
	defer t.Cleanup()

	for line := range t.Lines {
		if line.Err != nil {
			continue
		}
		if jsonOutput || opts.JSONOutput {
			printLogJSON(line.Text)
		} else {
			printLogText(line.Text)
		}
	}

	return nil
}

// tailOffset computes the byte offset of the Nth line from the end of the
// file. A negative n means the whole file.
func tailOffset(path string, n int) (int64, error) {
	if n < 0 {
		return 0, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	seen := 0
	for i := len(data) - 1; i >= 0; i-- {
		if data[i] == '\n' {
			// Skip the trailing newline of the last line
			if i == len(data)-1 {
				continue
			}
			seen++
			if seen == n {
				return int64(i + 1), nil
			}
		}
	}
	// Fewer than n lines in the file, show everything
	return 0, nil
}

// printLogJSON prints a log line as a JSON object.
func printLogJSON(line string) {
	var logMap map[string]interface{}
	if err := json.Unmarshal([]byte(line), &logMap); err != nil {
		fallback := map[string]interface{}{
			"raw_line": line,
			"error":    "failed to parse original log line as JSON",
		}
		jsonData, _ := json.Marshal(fallback)
		fmt.Println(string(jsonData))
		return
	}

	jsonData, _ := json.Marshal(logMap)
	fmt.Println(string(jsonData))
}

// printLogText pretty-prints a log line for human consumption.
func printLogText(line string) {
	var logMap map[string]interface{}
	if err := json.Unmarshal([]byte(line), &logMap); err != nil {
		// Not JSON, print as-is
		fmt.Println(line)
		return
	}

	ts, _ := logMap["time"].(string)
	level, _ := logMap["level"].(string)
	msg, _ := logMap["msg"].(string)
	component, _ := logMap["component"].(string)

	parsedTime, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		parsedTime, _ = time.Parse(time.RFC3339, ts)
	}
	timeStr := parsedTime.Format("15:04:05")

	var levelStyle lipgloss.Style
	switch strings.ToLower(level) {
	case "error", "fatal", "panic":
		levelStyle = theme.DefaultTheme.Error
	case "warning":
		levelStyle = theme.DefaultTheme.Warning
	case "info":
		levelStyle = theme.DefaultTheme.Success
	default:
		levelStyle = theme.DefaultTheme.Muted
	}
	levelStr := levelStyle.Render(strings.ToUpper(level))

	var otherFields []string
	var sortedKeys []string
	for k := range logMap {
		if k != "time" && k != "level" && k != "msg" && k != "component" {
			sortedKeys = append(sortedKeys, k)
		}
	}
	sort.Strings(sortedKeys)

	for _, k := range sortedKeys {
		otherFields = append(otherFields, fmt.Sprintf("%s=%v", theme.DefaultTheme.Muted.Render(k), logMap[k]))
	}

	fmt.Printf("%s %s %s [%s] %s\n",
		timeStr,
		levelStr,
		msg,
		theme.DefaultTheme.Muted.Render(component),
		strings.Join(otherFields, " "),
	)
}
