package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/miiguelriios/WasteLessApp/pkg/auth"
	"github.com/miiguelriios/WasteLessApp/pkg/model"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage API users",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a user that can log in to the API",
	RunE:  runUserAdd,
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userAddCmd)

	userAddCmd.Flags().String("email", "", "Login email (required)")
	userAddCmd.Flags().String("name", "", "Display name")
	userAddCmd.Flags().String("password", "", "Password (required)")
	userAddCmd.Flags().String("role", "staff", "Role: admin or staff")
	_ = userAddCmd.MarkFlagRequired("email")
	_ = userAddCmd.MarkFlagRequired("password")
}

func runUserAdd(cmd *cobra.Command, _ []string) error {
	email, _ := cmd.Flags().GetString("email")
	name, _ := cmd.Flags().GetString("name")
	password, _ := cmd.Flags().GetString("password")
	role, _ := cmd.Flags().GetString("role")

	switch role {
	case "admin", "staff":
	default:
		return fmt.Errorf("invalid role %q: must be admin or staff", role)
	}
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	u := &model.User{
		Name:         name,
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		Role:         role,
	}
	if err := a.store.CreateUser(context.Background(), u); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Printf("User %s created (id %d, role %s)\n", u.Email, u.ID, u.Role)
	return nil
}
