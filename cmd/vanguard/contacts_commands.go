package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vanguard/internal/alert"
	"vanguard/internal/contacts"
)

func newContactsCommand(ctx *commandContext) *cobra.Command {
	contactsCmd := &cobra.Command{
		Use:   "contacts",
		Short: "Manage emergency contacts",
	}

	contactsCmd.AddCommand(newContactsListCommand(ctx))
	contactsCmd.AddCommand(newContactsAddCommand(ctx))
	contactsCmd.AddCommand(newContactsRemoveCommand(ctx))
	return contactsCmd
}

func newContactsListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List contacts in the order they were added",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := ctx.openRegistry(cmd.Context())
			if err != nil {
				return err
			}
			list := registry.List()
			if jsonOutput {
				if list == nil {
					list = []contacts.Contact{}
				}
				return writeJSON(cmd, list)
			}

			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No contacts configured. Add one with 'vanguard contacts add <name> <phone>'.")
				return nil
			}
			_, primary := alert.SelectTargets(list, alert.ModePrimary)
			rows := make([][]string, 0, len(list))
			for _, c := range list {
				marker := ""
				if len(primary) == 1 && primary[0].ID == c.ID {
					marker = "primary"
				}
				rows = append(rows, []string{shortID(c.ID), c.Name, c.PhoneNumber, yesNo(c.IsPriority), marker})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Name", "Phone", "Priority", "Target"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newContactsAddCommand(ctx *commandContext) *cobra.Command {
	var priority bool

	cmd := &cobra.Command{
		Use:   "add <name> <phone>",
		Short: "Add an emergency contact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := ctx.openRegistry(cmd.Context())
			if err != nil {
				return err
			}
			contact, err := registry.Add(cmd.Context(), args[0], args[1], priority)
			if err != nil {
				return err
			}
			label := ""
			if contact.IsPriority {
				label = " (priority)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s%s as %s\n", contact.Name, label, shortID(contact.ID))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&priority, "priority", "p", false, "Make this the primary contact for targeted alerts")
	return cmd
}

func newContactsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a contact by ID or ID prefix",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := ctx.openRegistry(cmd.Context())
			if err != nil {
				return err
			}
			contact, ok := registry.Find(args[0])
			if !ok {
				return fmt.Errorf("no contact matches %q", args[0])
			}
			if _, err := registry.Remove(cmd.Context(), contact.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", contact.Name)
			return nil
		},
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
