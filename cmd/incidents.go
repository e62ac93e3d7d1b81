package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/opswatch/incidentd/cli"
	"github.com/opswatch/incidentd/cli/theme"
	"github.com/opswatch/incidentd/errors"
	"github.com/opswatch/incidentd/pkg/client"
	"github.com/opswatch/incidentd/pkg/models"
	"github.com/opswatch/incidentd/pkg/protocol"
)

// NewIncidentsCmd returns the incidents command with subcommands.
func NewIncidentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "incidents",
		Aliases: []string{"inc"},
		Short:   "Manage incidents on a running daemon",
	}

	cmd.PersistentFlags().StringP("server", "s", "", "Daemon base URL (default derived from config)")

	cmd.AddCommand(newIncidentsListCmd())
	cmd.AddCommand(newIncidentsShowCmd())
	cmd.AddCommand(newIncidentsCreateCmd())
	cmd.AddCommand(newIncidentsUpdateCmd())
	cmd.AddCommand(newIncidentsDeleteCmd())
	cmd.AddCommand(newIncidentsWatchCmd())

	return cmd
}

// serverURL resolves the daemon base URL from the --server flag or the
// configured listen address.
func serverURL(cmd *cobra.Command) string {
	if s, _ := cmd.Flags().GetString("server"); s != "" {
		return s
	}

	listen := ":3001"
	if cfg, err := cli.LoadConfig(cmd); err == nil && cfg.Server.Listen != "" {
		listen = cfg.Server.Listen
	}

	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://localhost:3001"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s", net.JoinHostPort(host, port))
}

func newIncidentsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List incidents",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.GetOptions(cmd)
			tenant, _ := cmd.Flags().GetString("tenant")

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			result, err := client.ListIncidents(ctx, serverURL(cmd), tenant)
			if err != nil {
				return err
			}

			if opts.JSONOutput {
				return printJSON(result)
			}

			fmt.Printf("%s %s\n\n",
				theme.DefaultTheme.Header.Render("Incidents"),
				theme.DefaultTheme.Muted.Render(fmt.Sprintf("(tenant: %s)", result.TenantID)),
			)
			if len(result.Items) == 0 {
				fmt.Println(theme.DefaultTheme.Muted.Render("No incidents."))
				return nil
			}
			for _, inc := range result.Items {
				fmt.Printf("%s %s %s\n",
					theme.DefaultTheme.Accent.Render(fmt.Sprintf("#%d", inc.ID)),
					stateStyle(inc.State).Render(string(inc.State)),
					inc.Title,
				)
			}
			return nil
		},
	}
	cmd.Flags().String("tenant", "", "Tenant scope for the listing")
	return cmd
}

func newIncidentsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a single incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.GetOptions(cmd)
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			inc, err := client.FetchIncident(ctx, serverURL(cmd), id)
			if err != nil {
				return err
			}

			if opts.JSONOutput {
				return printJSON(inc)
			}
			printIncident(inc)
			return nil
		},
	}
}

func newIncidentsCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create an incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description, _ := cmd.Flags().GetString("description")
			author, _ := cmd.Flags().GetString("author")

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			c, err := client.Dial(ctx, serverURL(cmd))
			if err != nil {
				return err
			}
			defer c.Close()

			// The snapshot arrives first on every new connection
			if _, err := awaitKind(ctx, c, protocol.KindIncidentsSnapshot); err != nil {
				return err
			}

			if err := c.CreateIncident(args[0], description, author); err != nil {
				return err
			}

			env, err := awaitKind(ctx, c, protocol.KindIncidentCreated)
			if err != nil {
				return err
			}
			var event protocol.IncidentEvent
			if err := env.Decode(&event); err != nil {
				return err
			}
			fmt.Printf("Created incident %s\n", theme.DefaultTheme.Accent.Render(fmt.Sprintf("#%d", event.Incident.ID)))
			return nil
		},
	}
	cmd.Flags().StringP("description", "d", "", "Incident description")
	cmd.Flags().StringP("author", "a", "", "Reporter name")
	return cmd
}

func newIncidentsUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id> <state>",
		Short: "Update an incident's state",
		Long: fmt.Sprintf("Moves an incident to a new state. Valid states: %s.",
			strings.Join(models.ValidStates(), ", ")),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, _ := cmd.Flags().GetString("actor")
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			c, err := client.Dial(ctx, serverURL(cmd))
			if err != nil {
				return err
			}
			defer c.Close()

			if _, err := awaitKind(ctx, c, protocol.KindIncidentsSnapshot); err != nil {
				return err
			}

			if err := c.UpdateIncidentState(id, args[1], actor); err != nil {
				return err
			}

			env, err := awaitAny(ctx, c, protocol.KindIncidentUpdated, protocol.KindError)
			if err != nil {
				return err
			}
			if env.Kind == protocol.KindError {
				var e protocol.Error
				if err := env.Decode(&e); err != nil {
					return err
				}
				return fmt.Errorf("%s", e.Message)
			}
			var event protocol.IncidentEvent
			if err := env.Decode(&event); err != nil {
				return err
			}
			fmt.Printf("Incident %s is now %s\n",
				theme.DefaultTheme.Accent.Render(fmt.Sprintf("#%d", event.Incident.ID)),
				stateStyle(event.Incident.State).Render(string(event.Incident.State)),
			)
			return nil
		},
	}
	cmd.Flags().String("actor", "", "Name recorded as the last modifier")
	return cmd
}

func newIncidentsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			if err := client.DeleteIncident(ctx, serverURL(cmd), id); err != nil {
				return err
			}
			fmt.Printf("Deleted incident #%d\n", id)
			return nil
		},
	}
}

func newIncidentsWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream incident events",
		Long:  "Connects to the daemon and prints every incident event as it happens. Press Ctrl-C to stop.",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.GetOptions(cmd)

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			c, err := client.Dial(ctx, serverURL(cmd))
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Register("incidentd-cli"); err != nil {
				return err
			}

			for {
				select {
				case <-ctx.Done():
					return nil
				case env, ok := <-c.Events():
					if !ok {
						return fmt.Errorf("connection closed")
					}
					if opts.JSONOutput {
						if err := printJSON(env); err != nil {
							return err
						}
						continue
					}
					printEvent(env)
				}
			}
		},
	}
}

func printEvent(env protocol.Envelope) {
	now := time.Now().Format("15:04:05")
	switch env.Kind {
	case protocol.KindIncidentsSnapshot:
		var snap protocol.Snapshot
		if env.Decode(&snap) == nil {
			fmt.Printf("%s %s %d incident(s)\n", now,
				theme.DefaultTheme.Muted.Render("snapshot"), len(snap.Items))
		}
	case protocol.KindIncidentCreated, protocol.KindIncidentUpdated:
		var event protocol.IncidentEvent
		if env.Decode(&event) == nil && event.Incident != nil {
			fmt.Printf("%s %s #%d %s %s\n", now,
				theme.DefaultTheme.Accent.Render(string(env.Kind)),
				event.Incident.ID,
				stateStyle(event.Incident.State).Render(string(event.Incident.State)),
				event.Incident.Title,
			)
		}
	case protocol.KindIncidentDeleted:
		var del protocol.IncidentDeleted
		if env.Decode(&del) == nil {
			fmt.Printf("%s %s #%d\n", now,
				theme.DefaultTheme.Warning.Render(string(env.Kind)), del.ID)
		}
	case protocol.KindNotification:
		var note protocol.Notification
		if env.Decode(&note) == nil {
			fmt.Printf("%s %s %s\n", now,
				theme.DefaultTheme.Success.Render("notification"), note.Message)
		}
	default:
		fmt.Printf("%s %s\n", now, string(env.Kind))
	}
}

func printIncident(inc *models.Incident) {
	fmt.Printf("%s %s\n", theme.DefaultTheme.Accent.Render(fmt.Sprintf("#%d", inc.ID)), theme.DefaultTheme.Bold.Render(inc.Title))
	fmt.Printf("  State:    %s\n", stateStyle(inc.State).Render(string(inc.State)))
	fmt.Printf("  Author:   %s\n", inc.Author)
	if inc.Description != "" {
		fmt.Printf("  Details:  %s\n", inc.Description)
	}
	if inc.LastModifier != "" {
		fmt.Printf("  Modified: %s\n", inc.LastModifier)
	}
	fmt.Printf("  Created:  %s\n", inc.CreatedAt.Format(time.RFC3339))
	fmt.Printf("  Updated:  %s\n", inc.UpdatedAt.Format(time.RFC3339))
}

// awaitKind reads events until one of the given kind arrives.
func awaitKind(ctx context.Context, c *client.Client, kind protocol.Kind) (protocol.Envelope, error) {
	return awaitAny(ctx, c, kind)
}

// awaitAny reads events until one of the given kinds arrives.
func awaitAny(ctx context.Context, c *client.Client, kinds ...protocol.Kind) (protocol.Envelope, error) {
	for {
		select {
		case <-ctx.Done():
			return protocol.Envelope{}, ctx.Err()
		case env, ok := <-c.Events():
			if !ok {
				return protocol.Envelope{}, fmt.Errorf("connection closed")
			}
			for _, k := range kinds {
				if env.Kind == k {
					return env, nil
				}
			}
		}
	}
}

func stateStyle(s models.State) lipgloss.Style {
	switch s {
	case models.StateResolved:
		return theme.DefaultTheme.Success
	case models.StateInProgress:
		return theme.DefaultTheme.Warning
	default:
		return theme.DefaultTheme.Error
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Validation(fmt.Sprintf("invalid incident id %q", s))
	}
	return id, nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
