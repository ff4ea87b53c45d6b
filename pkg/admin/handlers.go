package admin

import (
	"net/http"
	"time"
)

// HealthResponse is the payload every health-family endpoint returns.
type HealthResponse struct {
	Status string        `json:"status"`
	Uptime time.Duration `json:"uptime_ns"`
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Uptime: a.uptime()})
}

// handleReadiness additionally requires a loaded World: a server with no
// schema loaded yet cannot usefully serve traffic.
func (a *API) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if a.Registry.Current() == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "no schema loaded")
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ready", Uptime: a.uptime()})
}

// ProtoFileStatus mirrors schema.FileStatus for the status endpoint's
// protos.loaded/skipped breakdown.
type ProtoFileStatus struct {
	File  string `json:"file"`
	Error string `json:"error,omitempty"`
}

// StatusResponse is the payload for GET /admin/status.
type StatusResponse struct {
	GRPCPort       int               `json:"grpc_port"`
	GRPCAddress    string            `json:"grpc_address,omitempty"`
	ConnectEnabled bool              `json:"connect_rpc_enabled"`
	ConnectAddress string            `json:"connect_rpc_address,omitempty"`
	LoadedServices int               `json:"loaded_services"`
	Rules          int               `json:"rules"`
	Generation     uint64            `json:"generation"`
	Protos         ProtosStatus      `json:"protos"`
	RuleLoadErrors []RuleErrorStatus `json:"rule_load_errors,omitempty"`
}

// ProtosStatus is the loaded/skipped breakdown nested in StatusResponse.
type ProtosStatus struct {
	Loaded  []string          `json:"loaded"`
	Skipped []ProtoFileStatus `json:"skipped"`
}

// RuleErrorStatus reports one rule file that failed to parse.
type RuleErrorStatus struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	wd := a.Registry.Current()
	if wd == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "no schema loaded")
		return
	}

	resp := StatusResponse{
		GRPCPort:       a.Config.GRPCPort,
		ConnectEnabled: a.Config.ConnectEnabled,
		LoadedServices: wd.Descriptor.ServiceCount(),
		Rules:          wd.Rules.Count(),
		Generation:     wd.Generation,
	}
	if p := a.GRPCAddress.Load(); p != nil {
		resp.GRPCAddress = *p
	}
	if p := a.ConnectAddress.Load(); p != nil {
		resp.ConnectAddress = *p
	}
	for _, st := range wd.Descriptor.Statuses {
		if st.Loaded {
			resp.Protos.Loaded = append(resp.Protos.Loaded, st.File)
		} else {
			resp.Protos.Skipped = append(resp.Protos.Skipped, ProtoFileStatus{File: st.File, Error: st.Error})
		}
	}
	for _, le := range wd.Rules.LoadErrors {
		resp.RuleLoadErrors = append(resp.RuleLoadErrors, RuleErrorStatus{File: le.File, Message: le.Message})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleServices(w http.ResponseWriter, r *http.Request) {
	wd := a.Registry.Current()
	if wd == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "no schema loaded")
		return
	}
	writeJSON(w, http.StatusOK, wd.Descriptor.ListServices())
}

func (a *API) handleSchema(w http.ResponseWriter, r *http.Request) {
	wd := a.Registry.Current()
	if wd == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "no schema loaded")
		return
	}
	typeName := r.PathValue("type")
	view, err := wd.Descriptor.SchemaOf(typeName)
	if err != nil {
		writeError(w, http.StatusNotFound, "type_not_found", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, view)
}
