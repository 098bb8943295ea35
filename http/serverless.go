package http

import (
	"context"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/chatflow-dev/chatflow/config"
	"github.com/chatflow-dev/chatflow/constants"
	"github.com/chatflow-dev/chatflow/endpoint"
	"github.com/chatflow-dev/chatflow/utils"
)

var (
	initServerless sync.Once
	initErr        error
	serverlessMux  *http.ServeMux
	muxMutex       sync.RWMutex
)

// ServerlessHandler serves the backend as a single function. Configuration comes
// from the file named by CHATFLOW_CONFIG (if any) and the environment;
// CHATFLOW_ENDPOINTS limits the operations served, e.g. "LOADER,SAVE_WORKSPACE".
func ServerlessHandler(w http.ResponseWriter, r *http.Request) {
	// Initialize once
	initServerless.Do(func() {
		var deps Deps
		deps, initErr = serverlessDeps(r.Context())
		if initErr != nil {
			utils.Error("serverless init failed: %v", initErr)
			return
		}
		ops, err := operationsFromEnv()
		if err != nil {
			initErr = err
			return
		}
		mux := NewServer(deps).Mux(ops)
		muxMutex.Lock()
		serverlessMux = mux
		muxMutex.Unlock()
	})

	if initErr != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Use the cached mux
	muxMutex.RLock()
	mux := serverlessMux
	muxMutex.RUnlock()

	if mux == nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	mux.ServeHTTP(w, r)
}

func serverlessDeps(ctx context.Context) (Deps, error) {
	cfg := config.Default()
	if path := os.Getenv(constants.EnvConfigPath); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return Deps{}, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return Deps{}, err
	}
	return NewDepsFromConfig(ctx, cfg)
}

// operationsFromEnv reads CHATFLOW_ENDPOINTS. Unset or blank means every operation.
func operationsFromEnv() ([]endpoint.Operation, error) {
	raw := strings.TrimSpace(os.Getenv(constants.EnvEndpoints))
	if raw == "" {
		return endpoint.Operations(), nil
	}
	var ops []endpoint.Operation
	for _, part := range strings.Split(raw, ",") {
		name := strings.ToUpper(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		op := endpoint.Operation(name)
		if !op.Valid() {
			return nil, utils.Errorf("%s: %w: %q", constants.EnvEndpoints, endpoint.ErrUnknownOperation, name)
		}
		ops = append(ops, op)
	}
	if len(ops) == 0 {
		return endpoint.Operations(), nil
	}
	return ops, nil
}

// ResetServerlessMux resets the serverless mux (for testing)
func ResetServerlessMux() {
	muxMutex.Lock()
	defer muxMutex.Unlock()

	// Reset the Once so initialization can happen again
	initServerless = sync.Once{}
	initErr = nil
	serverlessMux = nil
}
