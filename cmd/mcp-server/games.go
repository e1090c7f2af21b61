package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"cityquest-mcp-service/pkg/games"
)

func newGamesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "games",
		Short: "Manage adventure games in the configured store",
		Long: `games talks to the configured game store directly. The memory backend
only lives for one invocation, so use postgres or redis to keep games
between commands.`,
	}

	var input games.CreateGameInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a game and print it as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := c.gameService(cmd.Context())
			if err != nil {
				return err
			}
			defer service.Close()

			game, err := service.CreateGame(cmd.Context(), input)
			if err != nil {
				return err
			}
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(game)
		},
	}
	create.Flags().StringVar(&input.PlayerName, "player", "", "player name")
	create.Flags().StringVar(&input.AdventureType, "type", string(games.AdventureTour), "adventure type (tour, foodie, race)")
	create.Flags().StringVar(&input.AvatarDataURL, "avatar", "", "avatar image as a data URL")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a stored game as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := c.gameService(cmd.Context())
			if err != nil {
				return err
			}
			defer service.Close()

			game, err := service.GetGame(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(game)
		},
	}

	dispatch := &cobra.Command{
		Use:   "dispatch <id>",
		Short: "Build, record and print the welcome prompt for a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := c.gameService(cmd.Context())
			if err != nil {
				return err
			}
			defer service.Close()

			prompt, err := service.SendPrompt(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), prompt)
			return nil
		},
	}

	cmd.AddCommand(create, show, dispatch)
	return cmd
}
