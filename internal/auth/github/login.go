package github

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gitsphere-dev/gitsphere-gateway/internal/browser"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/config"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/util"
	log "github.com/sirupsen/logrus"
)

// LoginOptions controls the CLI login flow.
type LoginOptions struct {
	// NoBrowser suppresses automatic browser launching; the authorization URL
	// is printed instead.
	NoBrowser bool
	// CallbackPort overrides the port the local callback server listens on.
	CallbackPort int
	// Prompt, when set, is used to ask the user to paste the callback URL
	// manually if the local server never receives it.
	Prompt func(message string) (string, error)
}

// DefaultCallbackPort is the port the local OAuth callback server uses when
// no override is configured.
const DefaultCallbackPort = 8085

// callbackWaitTimeout bounds how long the login flow waits for GitHub to
// redirect back to the local server.
const callbackWaitTimeout = 5 * time.Minute

// Login runs the interactive GitHub OAuth flow for the CLI.
// It starts a local callback server, opens the browser to the GitHub
// authorization page, waits for the redirect, exchanges the authorization
// code through the analytics backend, and returns the resulting token record.
func Login(ctx context.Context, cfg *config.Config, opts *LoginOptions) (*GitHubTokenStorage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if opts == nil {
		opts = &LoginOptions{}
	}

	callbackPort := DefaultCallbackPort
	if cfg.GitHub.OAuthCallbackPort > 0 {
		callbackPort = cfg.GitHub.OAuthCallbackPort
	}
	if opts.CallbackPort > 0 {
		callbackPort = opts.CallbackPort
	}

	state, err := GenerateRandomState()
	if err != nil {
		return nil, fmt.Errorf("state generation failed: %w", err)
	}

	oauthServer := NewOAuthServer(callbackPort)
	if err = oauthServer.Start(); err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if stopErr := oauthServer.Stop(stopCtx); stopErr != nil {
			log.Warnf("oauth callback server stop error: %v", stopErr)
		}
	}()

	authSvc := NewGitHubAuth(cfg)

	redirectURI := fmt.Sprintf("http://localhost:%d/auth/callback", callbackPort)
	authURL := authSvc.AuthorizeURL(redirectURI, state)

	if !opts.NoBrowser {
		fmt.Println("Opening browser for GitHub authentication")
		if !browser.IsAvailable() {
			log.Warn("No browser available; please open the URL manually")
			util.PrintSSHTunnelInstructions(callbackPort)
			fmt.Printf("Visit the following URL to continue authentication:\n%s\n", authURL)
		} else if err = browser.OpenURL(authURL); err != nil {
			log.Warnf("Failed to open browser automatically: %v", err)
			util.PrintSSHTunnelInstructions(callbackPort)
			fmt.Printf("Visit the following URL to continue authentication:\n%s\n", authURL)
		}
	} else {
		util.PrintSSHTunnelInstructions(callbackPort)
		fmt.Printf("Visit the following URL to continue authentication:\n%s\n", authURL)
	}

	fmt.Println("Waiting for GitHub authentication callback...")

	callbackCh := make(chan *OAuthResult, 1)
	callbackErrCh := make(chan error, 1)

	go func() {
		result, errWait := oauthServer.WaitForCallback(callbackWaitTimeout)
		if errWait != nil {
			callbackErrCh <- errWait
			return
		}
		callbackCh <- result
	}()

	var result *OAuthResult
	var manualPromptTimer *time.Timer
	var manualPromptC <-chan time.Time
	if opts.Prompt != nil {
		manualPromptTimer = time.NewTimer(15 * time.Second)
		manualPromptC = manualPromptTimer.C
		defer manualPromptTimer.Stop()
	}

waitForCallback:
	for {
		select {
		case result = <-callbackCh:
			break waitForCallback
		case err = <-callbackErrCh:
			return nil, err
		case <-manualPromptC:
			manualPromptC = nil
			if manualPromptTimer != nil {
				manualPromptTimer.Stop()
			}
			select {
			case result = <-callbackCh:
				break waitForCallback
			case err = <-callbackErrCh:
				return nil, err
			default:
			}
			input, errPrompt := opts.Prompt("Paste the GitHub callback URL (or press Enter to keep waiting): ")
			if errPrompt != nil {
				return nil, errPrompt
			}
			parsed, errParse := ParseOAuthCallback(input)
			if errParse != nil {
				return nil, errParse
			}
			if parsed == nil {
				continue
			}
			result = &OAuthResult{
				Code:  parsed.Code,
				State: parsed.State,
				Error: parsed.Error,
			}
			break waitForCallback
		}
	}

	if result.Error != "" {
		return nil, fmt.Errorf("oauth flow failed: %s", result.Error)
	}

	if result.State != state {
		return nil, fmt.Errorf("state mismatch in oauth callback")
	}

	log.Debug("Authorization code received; exchanging for session token")

	tokenData, err := authSvc.ExchangeCode(ctx, result.Code, result.State)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	if missing := missingScopes(cfg.GitHub.Scopes, tokenData.Scopes); len(missing) > 0 {
		log.Warnf("Granted scopes missing: %s", strings.Join(missing, ", "))
	}

	storage := authSvc.CreateTokenStorage(tokenData)

	fmt.Println("GitHub authentication successful")

	return storage, nil
}

// missingScopes returns the required scopes absent from the granted set.
func missingScopes(required, granted []string) []string {
	grantedSet := make(map[string]struct{}, len(granted))
	for _, s := range granted {
		grantedSet[s] = struct{}{}
	}
	var missing []string
	for _, s := range required {
		if _, ok := grantedSet[s]; !ok {
			missing = append(missing, s)
		}
	}
	return missing
}
