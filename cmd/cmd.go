// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with a device code on a second screen",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "open",
						Usage: "Open the verification URL in the browser",
						Value: true,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Check current authentication state",
				Action: r.AuthStatus,
			},
			{
				Name:   "refresh",
				Usage:  "Force an access token refresh",
				Action: r.AuthRefresh,
			},
			{
				Name:   "logout",
				Usage:  "Drop credentials and clear the session store",
				Action: r.AuthLogout,
			},
		},
	}
}

// channelsCommand handles subscription channel operations
func channelsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "channels",
		Aliases: []string{"ch"},
		Usage:   "Subscription channel operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List cached subscription channels",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of channels to return",
						Value: 50,
					},
					&cli.IntFlag{
						Name:  "skip",
						Usage: "Number of channels to skip",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.ChannelsList,
			},
			{
				Name:   "sync",
				Usage:  "Fetch the next page of subscriptions into the cache",
				Action: r.ChannelsSync,
			},
		},
	}
}

// videosCommand handles uploads-playlist operations
func videosCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "videos",
		Aliases: []string{"vids"},
		Usage:   "Channel upload operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List cached uploads of a channel",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "channel",
						Usage:    "Channel ID whose uploads to list",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of videos to return",
						Value: 50,
					},
					&cli.IntFlag{
						Name:  "skip",
						Usage: "Number of videos to skip",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.VideosList,
			},
			{
				Name:  "sync",
				Usage: "Fetch the next page of a channel's uploads into the cache",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "channel",
						Usage:    "Channel ID whose uploads to sync",
						Required: true,
					},
				},
				Action: r.VideosSync,
			},
		},
	}
}

// playCommand opens a video in the system browser
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Open a video in the browser",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "id",
			},
		},
		Action: r.Play,
	}
}

// cacheCommand inspects and clears the local catalog cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and clear the local catalog cache",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show cache contents and continuation state",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CacheShow,
			},
			{
				Name:   "clear",
				Usage:  "Empty the cache and its backing store",
				Action: r.CacheClear,
			},
		},
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and the cache database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// tuiCommand returns the top-level TUI command for interactive browsing.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive subscription browser",
		Action:  r.TUI,
	}
}
