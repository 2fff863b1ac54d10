package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"wingo/config"
	"wingo/repository"
	"wingo/service"
)

var demoUsersCmd = &cobra.Command{
	Use:   "demo-users",
	Short: "Manage demo users whose bets always win",
}

func init() {
	demoUsersCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List demo users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := openDatabase(ctx, config.Get())
			if err != nil {
				return err
			}
			defer db.Close()

			users, err := repository.NewDemoUserRepository(db).List(ctx)
			if err != nil {
				return err
			}
			for _, user := range users {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", user.UserID, user.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	})

	demoUsersCmd.AddCommand(&cobra.Command{
		Use:   "add <user-id>",
		Short: "Mark a user as a demo user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := openDatabase(ctx, config.Get())
			if err != nil {
				return err
			}
			defer db.Close()

			user, err := repository.NewUserRepository(db).GetByID(ctx, userID)
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("user %d: %w", userID, service.ErrUserNotFound)
			}

			demoUsers := service.NewDemoUserService(repository.NewDemoUserRepository(db), service.NewDemoUserCache())
			if err := demoUsers.Add(ctx, userID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added demo user %d (%s)\n", user.ID, user.Username)
			return nil
		},
	})

	demoUsersCmd.AddCommand(&cobra.Command{
		Use:   "remove <user-id>",
		Short: "Remove a demo user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := openDatabase(ctx, config.Get())
			if err != nil {
				return err
			}
			defer db.Close()

			demoUsers := service.NewDemoUserService(repository.NewDemoUserRepository(db), service.NewDemoUserCache())
			if err := demoUsers.Remove(ctx, userID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed demo user %d\n", userID)
			return nil
		},
	})
}

func parseUserID(arg string) (int64, error) {
	userID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("invalid user id %q", arg)
	}
	return userID, nil
}
