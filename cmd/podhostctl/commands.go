package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"podhost/internal/db"
	"podhost/internal/feed"
	"podhost/internal/middleware"
	"podhost/internal/urlnorm"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
			return nil
		},
	}
}

func newUserCommand(ctx *commandContext) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	var email, name string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			email = strings.TrimSpace(email)
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			store, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}

			var namePtr *string
			if n := strings.TrimSpace(name); n != "" {
				namePtr = &n
			}
			user, err := store.CreateUser(cmd.Context(), email, namePtr)
			if errors.Is(err, db.ErrConflict) {
				return fmt.Errorf("user %s already exists", email)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
	createCmd.Flags().StringVar(&email, "email", "", "Email address")
	createCmd.Flags().StringVar(&name, "name", "", "Display name, used as feed author")

	userCmd.AddCommand(createCmd)
	return userCmd
}

func newTokenCommand(ctx *commandContext) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API tokens",
	}

	var email string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Issue a bearer token for a user",
		Long:  "Issue a bearer token for a user. Only its hash is stored, so the token is printed once.",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			user, err := store.GetUserByEmail(cmd.Context(), strings.TrimSpace(email))
			if errors.Is(err, db.ErrNotFound) {
				return fmt.Errorf("no user with email %q", email)
			}
			if err != nil {
				return err
			}

			token, hash, err := middleware.NewToken()
			if err != nil {
				return err
			}
			if err := store.CreateAPIToken(cmd.Context(), user.ID, hash); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	createCmd.Flags().StringVar(&email, "email", "", "Email of the token owner")

	tokenCmd.AddCommand(createCmd)
	return tokenCmd
}

func newPodcastsCommand(ctx *commandContext) *cobra.Command {
	podcastsCmd := &cobra.Command{
		Use:   "podcasts",
		Short: "Inspect podcasts",
	}

	podcastsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every podcast with its episode count",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			podcasts, err := store.ListPodcasts(cmd.Context())
			if err != nil {
				return err
			}
			if len(podcasts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No podcasts")
				return nil
			}

			rows := make([][]string, 0, len(podcasts))
			for _, p := range podcasts {
				owner := ""
				if p.OwnerEmail != nil {
					owner = *p.OwnerEmail
				}
				rows = append(rows, []string{
					p.Slug,
					p.Title,
					owner,
					strconv.Itoa(p.EpisodeCount),
					p.CreatedAt.UTC().Format("2006-01-02"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Slug", "Title", "Owner", "Episodes", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	})
	return podcastsCmd
}

func newFeedCommand(ctx *commandContext) *cobra.Command {
	feedCmd := &cobra.Command{
		Use:   "feed",
		Short: "Inspect feeds",
	}
	feedCmd.AddCommand(newFeedRenderCommand(ctx))
	return feedCmd
}

func newFeedRenderCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "render <slug|all>",
		Short: "Print the RSS document served for a podcast or the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			renderer := &feed.Renderer{
				BaseURL:      cfg.PublicBaseURL,
				Language:     cfg.FeedLanguage,
				CatalogTitle: cfg.CatalogTitle,
				Normalizer:   urlnorm.New(cfg.OwnHosts...),
			}

			if args[0] == "all" {
				rows, err := store.ListEpisodesWithPodcast(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), renderer.RenderCatalog(feed.CatalogFromJoined(rows)))
				return nil
			}

			podcast, err := store.GetPodcastBySlug(cmd.Context(), args[0])
			if errors.Is(err, db.ErrNotFound) {
				return fmt.Errorf("podcast %q not found", args[0])
			}
			if err != nil {
				return err
			}
			episodes, err := store.ListEpisodesByPodcast(cmd.Context(), podcast.ID, 0)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderer.RenderPodcast(podcast, episodes))
			return nil
		},
	}
}
