package httpapi

import (
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "os"
    "path/filepath"
    "strconv"
    "strings"

    "github.com/google/uuid"
    "github.com/rs/zerolog/log"

    "github.com/local/pageforge/internal/assemble"
    "github.com/local/pageforge/internal/document"
    "github.com/local/pageforge/internal/jobs"
    "github.com/local/pageforge/internal/partition"
    "github.com/local/pageforge/internal/remote"
    "github.com/local/pageforge/internal/session"
    "github.com/local/pageforge/internal/storage"
    "github.com/local/pageforge/internal/store"
)

type Config struct {
    OutputDir      string
    SmartThreshold int
}

// API exposes arrangement sessions and assembly jobs over HTTP.
type API struct {
    cfg      Config
    sessions *session.Manager
    runner   *jobs.Runner
    outputs  *storage.OutputStore // nil when no bucket is configured
}

func New(cfg Config, sessions *session.Manager, runner *jobs.Runner) *API {
    if cfg.SmartThreshold <= 0 { cfg.SmartThreshold = partition.DefaultSmartThreshold }
    return &API{cfg: cfg, sessions: sessions, runner: runner}
}

// WithOutputStore enables encrypted persistence of assembled outputs.
func (a *API) WithOutputStore(s *storage.OutputStore) *API {
    a.outputs = s
    return a
}

func (a *API) RegisterRoutes(mux *http.ServeMux) {
    mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK); _, _ = w.Write([]byte("ok")) })
    mux.HandleFunc("/sessions", a.handleOpenSession)
    mux.HandleFunc("/sessions/", a.handleSession)
    mux.HandleFunc("/split", a.handleSplit)
    mux.HandleFunc("/merge", a.handleMerge)
    mux.HandleFunc("/jobs/", a.handleJob)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(v)
}

type openReq struct {
    Source string `json:"source"`
}

func (a *API) handleOpenSession(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed); return
    }
    defer r.Body.Close()
    var req openReq
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        http.Error(w, "invalid json", http.StatusBadRequest); return
    }
    if req.Source == "" { http.Error(w, "missing source", http.StatusBadRequest); return }

    localPath, cleanup, err := remote.Resolve(r.Context(), req.Source)
    if err != nil {
        log.Error().Err(err).Str("source", req.Source).Msg("source fetch failed")
        http.Error(w, "source unavailable", http.StatusBadGateway); return
    }
    // Remote temp files live for the whole session; local paths are untouched.
    s, err := a.sessions.Open(localPath)
    if err != nil {
        cleanup()
        log.Error().Err(err).Str("source", req.Source).Msg("session open failed")
        http.Error(w, err.Error(), http.StatusUnprocessableEntity); return
    }
    s.OnClose(cleanup)

    writeJSON(w, http.StatusOK, map[string]any{
        "session_id": s.ID,
        "source_id":  s.Document().ID(),
        "pages":      s.Document().PageCount(),
    })
}

// handleSession dispatches /sessions/{id}[/op[/arg]].
func (a *API) handleSession(w http.ResponseWriter, r *http.Request) {
    rest := strings.TrimPrefix(r.URL.Path, "/sessions/")
    parts := strings.SplitN(rest, "/", 3)
    id := parts[0]
    if id == "" { http.Error(w, "missing session id", http.StatusBadRequest); return }

    s, err := a.sessions.Get(id)
    if err != nil { http.Error(w, "session not found", http.StatusNotFound); return }

    if len(parts) == 1 {
        switch r.Method {
        case http.MethodGet:
            a.sessionInfo(w, s)
        case http.MethodDelete:
            if err := a.sessions.Close(id); err != nil {
                http.Error(w, err.Error(), http.StatusInternalServerError); return
            }
            writeJSON(w, http.StatusOK, map[string]any{"closed": true})
        default:
            w.WriteHeader(http.StatusMethodNotAllowed)
        }
        return
    }

    op := parts[1]
    switch op {
    case "pages":
        a.sessionPages(w, s)
    case "thumb":
        if len(parts) < 3 { http.Error(w, "missing position", http.StatusBadRequest); return }
        a.sessionThumb(w, s, parts[2])
    case "images":
        if len(parts) < 3 { http.Error(w, "missing position", http.StatusBadRequest); return }
        a.sessionImages(w, s, parts[2])
    case "reorder", "move", "delete", "duplicate", "rotate", "undo", "redo":
        if r.Method != http.MethodPost {
            w.WriteHeader(http.StatusMethodNotAllowed); return
        }
        a.sessionMutate(w, r, s, op)
    case "assemble":
        if r.Method != http.MethodPost {
            w.WriteHeader(http.StatusMethodNotAllowed); return
        }
        a.sessionAssemble(w, r, s)
    default:
        http.Error(w, "unknown operation", http.StatusNotFound)
    }
}

func (a *API) sessionInfo(w http.ResponseWriter, s *session.Session) {
    refs := s.Arrangement().Refs()
    writeJSON(w, http.StatusOK, map[string]any{
        "session_id": s.ID,
        "source_id":  s.Document().ID(),
        "pages":      len(refs),
    })
}

func (a *API) sessionPages(w http.ResponseWriter, s *session.Session) {
    refs := s.Arrangement().Refs()
    infos := make([]session.PageInfo, 0, len(refs))
    for i := range refs {
        info, err := s.PageInfoAt(i)
        if err != nil { http.Error(w, err.Error(), http.StatusInternalServerError); return }
        infos = append(infos, info)
    }
    writeJSON(w, http.StatusOK, infos)
}

func (a *API) sessionThumb(w http.ResponseWriter, s *session.Session, posStr string) {
    pos, err := strconv.Atoi(posStr)
    if err != nil { http.Error(w, "invalid position", http.StatusBadRequest); return }
    data, err := s.Thumbnail(pos)
    if err != nil { http.Error(w, err.Error(), http.StatusNotFound); return }
    w.Header().Set("Content-Type", "image/jpeg")
    w.Header().Set("Cache-Control", "no-cache")
    _, _ = w.Write(data)
}

// sessionImages extracts the embedded images of the page at an
// arrangement position and reports their temp paths.
func (a *API) sessionImages(w http.ResponseWriter, s *session.Session, posStr string) {
    pos, err := strconv.Atoi(posStr)
    if err != nil { http.Error(w, "invalid position", http.StatusBadRequest); return }
    refs := s.Arrangement().Refs()
    if pos < 0 || pos >= len(refs) {
        http.Error(w, "position out of range", http.StatusNotFound); return
    }
    paths, err := s.Document().PageImages(refs[pos].PageIndex)
    if err != nil { http.Error(w, err.Error(), http.StatusInternalServerError); return }
    writeJSON(w, http.StatusOK, map[string]any{"count": len(paths), "files": paths})
}

type mutateReq struct {
    Order     []int `json:"order"`
    From      int   `json:"from"`
    To        int   `json:"to"`
    Positions []int `json:"positions"`
    Position  int   `json:"position"`
    Angle     int   `json:"angle"`
}

func (a *API) sessionMutate(w http.ResponseWriter, r *http.Request, s *session.Session, op string) {
    defer r.Body.Close()
    var req mutateReq
    if op != "undo" && op != "redo" {
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            http.Error(w, "invalid json", http.StatusBadRequest); return
        }
    }

    arr := s.Arrangement()
    var err error
    applied := true
    switch op {
    case "reorder":
        err = arr.Reorder(req.Order)
    case "move":
        err = arr.Move(req.From, req.To)
    case "delete":
        err = arr.Delete(req.Positions)
    case "duplicate":
        err = arr.Duplicate(req.Positions)
    case "rotate":
        if len(req.Positions) > 0 {
            for _, p := range req.Positions {
                if err = arr.Rotate(p, req.Angle); err != nil { break }
            }
        } else {
            err = arr.Rotate(req.Position, req.Angle)
        }
    case "undo":
        applied = arr.Undo()
    case "redo":
        applied = arr.Redo()
    }
    if err != nil {
        http.Error(w, err.Error(), http.StatusBadRequest); return
    }
    writeJSON(w, http.StatusOK, map[string]any{"applied": applied, "pages": arr.Len()})
}

type assembleReq struct {
    Output   string `json:"output"`    // optional s3://bucket/key destination
    FileName string `json:"file_name"` // optional local output name
    StoreKey string `json:"store_key"` // optional key in the configured output bucket
    Password string `json:"password"`  // encrypts the stored copy when set
}

func (a *API) sessionAssemble(w http.ResponseWriter, r *http.Request, s *session.Session) {
    defer r.Body.Close()
    var req assembleReq
    _ = json.NewDecoder(r.Body).Decode(&req)

    name := req.FileName
    if name == "" { name = fmt.Sprintf("assembled_%s.pdf", uuid.NewString()[:8]) }
    outPath := filepath.Join(a.cfg.OutputDir, name)

    jobID := a.runner.Submit("assemble", func(ctx context.Context, report func(int, string)) (string, error) {
        report(10, "assembling")
        if err := s.Assemble(ctx, outPath); err != nil { return "", err }
        if err := a.persistOutput(ctx, report, outPath, req.Output, req.StoreKey, req.Password); err != nil {
            return "", err
        }
        return outPath, nil
    })
    writeJSON(w, http.StatusAccepted, map[string]any{"job_id": jobID})
}

// persistOutput pushes a finished output to its optional remote
// destinations: a plain s3:// upload and/or the encrypted output store.
func (a *API) persistOutput(ctx context.Context, report func(int, string), outPath, dest, storeKey, password string) error {
    if dest != "" {
        report(80, "uploading")
        if err := remote.Upload(ctx, outPath, dest); err != nil { return err }
    }
    if storeKey != "" {
        if a.outputs == nil {
            return fmt.Errorf("no output bucket configured")
        }
        report(90, "storing")
        data, err := os.ReadFile(outPath)
        if err != nil { return err }
        meta := map[string]string{"name": filepath.Base(outPath)}
        if err := a.outputs.Put(ctx, storeKey, data, password, meta); err != nil { return err }
    }
    return nil
}

type splitReq struct {
    Source    string `json:"source"`
    Mode      string `json:"mode"` // count | pages | bookmarks | smart
    Count     int    `json:"count"`
    Points    []int  `json:"points"`
    Threshold int    `json:"threshold"`
    Prefix    string `json:"prefix"`
}

func (a *API) handleSplit(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed); return
    }
    defer r.Body.Close()
    var req splitReq
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        http.Error(w, "invalid json", http.StatusBadRequest); return
    }
    if req.Source == "" { http.Error(w, "missing source", http.StatusBadRequest); return }
    if req.Mode == "" { http.Error(w, "missing mode", http.StatusBadRequest); return }
    threshold := req.Threshold
    if threshold <= 0 { threshold = a.cfg.SmartThreshold }

    outDir := filepath.Join(a.cfg.OutputDir, "split_"+uuid.NewString()[:8])
    jobID := a.runner.Submit("split", func(ctx context.Context, report func(int, string)) (string, error) {
        localPath, cleanup, err := remote.Resolve(ctx, req.Source)
        if err != nil { return "", err }
        defer cleanup()

        doc, err := document.Open(localPath)
        if err != nil { return "", err }
        defer doc.Close()
        report(20, "planning")

        plan, err := a.splitPlan(doc, req, threshold)
        if err != nil { return "", err }

        if err := os.MkdirAll(outDir, 0o755); err != nil { return "", err }
        report(40, "splitting")
        outputs, err := assemble.Split(ctx, doc, plan, outDir, req.Prefix)
        if err != nil { return "", err }
        log.Info().Int("parts", len(outputs)).Str("dir", outDir).Msg("split completed")
        return outDir, nil
    })
    writeJSON(w, http.StatusAccepted, map[string]any{"job_id": jobID})
}

func (a *API) splitPlan(doc *document.Document, req splitReq, threshold int) (partition.Plan, error) {
    switch req.Mode {
    case "count":
        return partition.ByCount(doc.PageCount(), req.Count)
    case "pages":
        return partition.ByPages(doc.PageCount(), req.Points)
    case "bookmarks":
        outline, err := doc.Outline()
        if err != nil { return nil, err }
        return partition.ByBookmarks(doc.PageCount(), outline)
    case "smart":
        lens, err := doc.PageTextLens()
        if err != nil { return nil, err }
        return partition.Smart(lens, threshold)
    default:
        return nil, &partition.InvalidParameterError{Param: "mode", Reason: "unknown mode " + req.Mode}
    }
}

type mergeReq struct {
    Sources  []string             `json:"sources"`
    Order    []partition.MergeRef `json:"order"` // optional; Source is an index into Sources
    FileName string               `json:"file_name"`
    Output   string               `json:"output"`
    StoreKey string               `json:"store_key"`
    Password string               `json:"password"`
}

func (a *API) handleMerge(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed); return
    }
    defer r.Body.Close()
    var req mergeReq
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        http.Error(w, "invalid json", http.StatusBadRequest); return
    }
    if len(req.Sources) == 0 { http.Error(w, "missing sources", http.StatusBadRequest); return }

    name := req.FileName
    if name == "" { name = fmt.Sprintf("merged_%s.pdf", uuid.NewString()[:8]) }
    outPath := filepath.Join(a.cfg.OutputDir, name)

    jobID := a.runner.Submit("merge", func(ctx context.Context, report func(int, string)) (string, error) {
        docs := make([]*document.Document, 0, len(req.Sources))
        defer func() {
            for _, d := range docs { _ = d.Close() }
        }()
        for i, src := range req.Sources {
            localPath, cleanup, err := remote.Resolve(ctx, src)
            if err != nil { return "", err }
            defer cleanup()
            doc, err := document.Open(localPath)
            if err != nil { return "", err }
            docs = append(docs, doc)
            report(10+30*i/len(req.Sources), "loading sources")
        }

        order := req.Order
        if len(order) == 0 {
            counts := make([]int, len(docs))
            for i, d := range docs { counts[i] = d.PageCount() }
            order = partition.Concat(counts)
        }

        report(50, "merging")
        if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil { return "", err }
        if err := assemble.FromMerge(ctx, docs, order, outPath); err != nil { return "", err }
        if err := a.persistOutput(ctx, report, outPath, req.Output, req.StoreKey, req.Password); err != nil {
            return "", err
        }
        return outPath, nil
    })
    writeJSON(w, http.StatusAccepted, map[string]any{"job_id": jobID})
}

// handleJob dispatches /jobs/{id}[/cancel|/download].
func (a *API) handleJob(w http.ResponseWriter, r *http.Request) {
    rest := strings.TrimPrefix(r.URL.Path, "/jobs/")
    parts := strings.SplitN(rest, "/", 2)
    id := parts[0]
    if id == "" { http.Error(w, "missing job id", http.StatusBadRequest); return }

    if len(parts) == 1 {
        st, ok, err := a.runner.Status(r.Context(), id)
        if err != nil { http.Error(w, "error", http.StatusInternalServerError); return }
        if !ok { http.Error(w, "not found", http.StatusNotFound); return }
        writeJSON(w, http.StatusOK, map[string]any{
            "job_id":   id,
            "status":   st.Status,
            "progress": st.Progress,
            "message":  st.Message,
        })
        return
    }

    switch parts[1] {
    case "cancel":
        if r.Method != http.MethodPost {
            w.WriteHeader(http.StatusMethodNotAllowed); return
        }
        if !a.runner.Cancel(id) {
            http.Error(w, "not found or already finished", http.StatusNotFound); return
        }
        writeJSON(w, http.StatusOK, map[string]any{"job_id": id, "status": store.StatusCancelled})
    case "download":
        a.jobDownload(w, r, id)
    default:
        http.Error(w, "unknown operation", http.StatusNotFound)
    }
}

func (a *API) jobDownload(w http.ResponseWriter, r *http.Request, id string) {
    st, ok, err := a.runner.Status(r.Context(), id)
    if err != nil || !ok { http.Error(w, "not found", http.StatusNotFound); return }
    if st.Status != store.StatusDone { http.Error(w, "not ready", http.StatusAccepted); return }
    path, ok := a.runner.Result(id)
    if !ok { http.Error(w, "result not available", http.StatusNotFound); return }

    fi, err := os.Stat(path)
    if err != nil { http.Error(w, "result not available", http.StatusNotFound); return }
    if fi.IsDir() {
        // split jobs produce a directory; list the parts
        entries, err := os.ReadDir(path)
        if err != nil { http.Error(w, "failed to read", http.StatusInternalServerError); return }
        names := make([]string, 0, len(entries))
        for _, e := range entries { names = append(names, e.Name()) }
        writeJSON(w, http.StatusOK, map[string]any{"dir": path, "files": names})
        return
    }

    w.Header().Set("Content-Type", "application/pdf")
    w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filepath.Base(path)))
    http.ServeFile(w, r, path)
}
