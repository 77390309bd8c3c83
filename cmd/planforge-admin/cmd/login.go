package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate and store an access token",
	Long: `Authenticates against the API with email and password and stores the
access token in the current context of the config file.`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().String("email", "", "Account email (prompts if not set)")
	loginCmd.Flags().String("password", "", "Account password (prompts if not set)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	if flagAPIURL == "" {
		return fmt.Errorf("API URL not configured. Use --api-url, PLANFORGE_API_URL, or 'planforge-admin config set-context'")
	}

	email, _ := cmd.Flags().GetString("email")
	if email == "" {
		fmt.Print("Email: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}
	if email == "" {
		return fmt.Errorf("email is required")
	}

	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		fmt.Print("Password: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = string(raw)
	}
	if password == "" {
		return fmt.Errorf("password is required")
	}

	client := NewClient(flagAPIURL, "", flagVerbose)
	data, err := client.Post("/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return err
	}

	var resp LoginResponse
	if err := unmarshal(data, &resp); err != nil {
		return err
	}

	if err := storeToken(resp.AccessToken); err != nil {
		return err
	}

	fmt.Printf("Logged in as %s (%s).\n", resp.User.Email, resp.User.Role)
	fmt.Printf("Token expires in %d minutes.\n", resp.ExpiresIn/60)
	return nil
}

// storeToken writes the access token into the active context, creating a
// default context when none exists yet.
func storeToken(token string) error {
	cfg, err := loadConfig()
	if err != nil {
		cfg = &Config{}
	}

	ctxName := flagContext
	if ctxName == "" {
		ctxName = os.Getenv("PLANFORGE_CONTEXT")
	}
	if ctxName == "" {
		ctxName = cfg.CurrentContext
	}
	if ctxName == "" {
		ctxName = "default"
	}

	detail := ContextDetail{APIURL: flagAPIURL, Token: token}
	if existing := cfg.GetContext(ctxName); existing != nil {
		detail = existing.Context
		detail.Token = token
		detail.TokenFile = ""
	}
	cfg.SetContext(ctxName, detail)
	if cfg.CurrentContext == "" {
		cfg.CurrentContext = ctxName
	}

	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}
