// Package server wires all MCP components and creates the server instance.
//
// This is the composition root (DIP): it creates concrete implementations
// and injects them into the tools that depend on abstractions. No business
// logic lives here — only wiring.
package server

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/HendryAvila/respec/internal/artifact"
	"github.com/HendryAvila/respec/internal/config"
	"github.com/HendryAvila/respec/internal/handler"
	"github.com/HendryAvila/respec/internal/header"
	"github.com/HendryAvila/respec/internal/index"
	"github.com/HendryAvila/respec/internal/prompts"
	"github.com/HendryAvila/respec/internal/repo"
	"github.com/HendryAvila/respec/internal/resolver"
	"github.com/HendryAvila/respec/internal/resources"
	"github.com/HendryAvila/respec/internal/search"
	"github.com/HendryAvila/respec/internal/tools"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools registered.
// This is the single place where all dependencies are resolved.
//
// The returned cleanup function closes the content search database and
// must be called on shutdown (typically via defer). It is always non-nil
// and safe to call even if search init failed.
func New() (*server.MCPServer, func(), error) {
	// --- Create shared dependencies ---

	cfg, err := config.Load()
	if err != nil {
		return nil, noop, fmt.Errorf("loading configuration: %w", err)
	}

	reg, err := artifact.NewRegistry()
	if err != nil {
		return nil, noop, fmt.Errorf("loading artifact type registry: %w", err)
	}

	codec, err := header.NewCodec(reg)
	if err != nil {
		return nil, noop, fmt.Errorf("building header codec: %w", err)
	}

	r := repo.New(cfg.DocRepoRoot, reg, index.New(cfg.DocRepoRoot), codec)
	dispatch := handler.NewDispatch(r)
	rv := resolver.New(r, dispatch, cfg.ProvisionalStore)

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"respec",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register authoring tools ---

	templateTool := tools.NewGetTemplateTool(reg)
	s.AddTool(templateTool.Definition(), templateTool.Handle)

	listTypesTool := tools.NewListTypesTool(reg)
	s.AddTool(listTypesTool.Definition(), listTypesTool.Handle)

	getTool := tools.NewGetArtifactTool(r)
	s.AddTool(getTool.Definition(), getTool.Handle)

	updateTool := tools.NewUpdateArtifactTool(r)
	s.AddTool(updateTool.Definition(), updateTool.Handle)

	// --- Register lookup tools ---

	searchIDTool := tools.NewSearchByIDTool(r)
	s.AddTool(searchIDTool.Definition(), searchIDTool.Handle)

	searchTypeTool := tools.NewSearchByTypeTool(r)
	s.AddTool(searchTypeTool.Definition(), searchTypeTool.Handle)

	// --- Register lifecycle tools ---

	statusTool := tools.NewUpdateStatusTool(dispatch)
	s.AddTool(statusTool.Definition(), statusTool.Handle)

	stepTool := tools.NewMarkStepDoneTool(dispatch)
	s.AddTool(stepTool.Definition(), stepTool.Handle)

	addTool := tools.NewAddArtifactTool(dispatch)
	s.AddTool(addTool.Definition(), addTool.Handle)

	refTool := tools.NewAddReferenceTool(dispatch)
	s.AddTool(refTool.Definition(), refTool.Handle)

	finalizeTool := tools.NewFinalizeTool(rv)
	s.AddTool(finalizeTool.Definition(), finalizeTool.Handle)

	registerTool := tools.NewRegisterProvisionalTool(rv)
	s.AddTool(registerTool.Definition(), registerTool.Handle)

	// --- Register content search ---
	//
	// Full-text search is an independent subsystem: if the database fails
	// to open, every other tool keeps working. We log a warning and skip
	// the search tool — the server is still fully functional for artifact
	// management.

	cleanup := noop
	idx, searchErr := search.Open(r, filepath.Join(cfg.DocRepoRoot, ".respec"))
	if searchErr != nil {
		log.Printf("WARNING: content search disabled: %v", searchErr)
	} else {
		cleanup = func() {
			if err := idx.Close(); err != nil {
				log.Printf("WARNING: search index close: %v", err)
			}
		}
		searchContentTool := tools.NewSearchContentTool(idx)
		s.AddTool(searchContentTool.Definition(), searchContentTool.Handle)
	}

	// --- Register prompts ---

	draftPrompt := prompts.NewDraftPrompt()
	s.AddPrompt(draftPrompt.Definition(), draftPrompt.Handle)

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(r)
	s.AddResource(resourceHandler.StatusResource(), resourceHandler.HandleStatus)

	return s, cleanup, nil
}

// noop is a no-op cleanup function used as the default when content
// search is disabled or hasn't been initialized.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// how to work with the artifact repository.
func serverInstructions() string {
	return `You have access to respec, an artifact repository MCP server for
typed markdown documents: PRD, TASKPRD, REQ, TASK, UACC, and SACC.

## How the repository works

Every artifact has a unique sequential ID like PRD-12 or REQ-47. The number
is global across all types — it comes from a shared ledger (index.md) at the
repository root. PRD and TASKPRD artifacts are whole files; REQ, TASK, UACC,
and SACC artifacts are sections inside those files.

Each artifact carries managed header lines directly under its heading, e.g.:

` + "`Status`: ACTIVE" + `
` + "`Parent`: PRD-12" + `

NEVER edit managed header lines by hand — they are maintained by the tools.
Use respec_update_status, respec_add_reference, and the other lifecycle
tools instead. Free-form body text below the headers is yours to edit.

## Authoring workflow

1. Call respec_get_template for the artifact type you are drafting.
2. Fill in the template. Keep the PROVISIONAL placeholder IDs exactly as
   they are (PRD-PROVISIONAL1, REQ-PROVISIONAL1, ...) — they are assigned
   real sequential IDs later. Step lines reference their artifact's
   provisional number ("[ ] PROVISIONAL1.1 ...").
3. Save the draft file into the provisional store directory.
4. Call respec_finalize with the draft's file name. Every provisional ID is
   replaced with a real ID, step references are rewritten, the finished file
   is written into the repository, and the draft is deleted. The response
   lists the ID mappings.

To add a single nested artifact (UACC/SACC) to an existing PRD:
1. Call respec_add_artifact with the section content using a PROVISIONAL ID.
2. Call respec_register_provisional_ids on the host PRD to assign real IDs.
   "*Tests*:" lines naming REQ IDs are recorded as covering tests
   automatically.

## Lifecycle

Statuses progress NEW → DRAFT → REVIEW → APPROVED → ACTIVE → TESTING →
COMPLETED, with CANCELLED and ARCHIVED as terminal alternatives. Use
respec_update_status — it updates the ledger, rewrites the Status header,
and propagates by type:

- TASK status changes annotate the task in every REQ it implements.
- UACC/SACC status changes annotate the test in every REQ it covers.
- PRD/TASKPRD files move into a completed/ or cancelled/ subdirectory.

Use respec_mark_step_done to tick "[ ] n.m ..." checklist steps in TASK,
UACC, and SACC artifacts.

## Finding things

- respec_search_artifacts: look up one artifact by ID or bare number. By
  default it also reports which other artifacts mention it.
- respec_search_by_type: list artifacts of a type, filtered by status or
  parent.
- respec_search_content: full-text search over all artifact bodies.
- respec_get_artifact: fetch one artifact's content (a section artifact
  returns just its section).
- respec_list_types: the type and status vocabulary with capabilities.

## Important rules

- NEVER invent artifact IDs — only the tools allocate them.
- NEVER hand-edit managed header lines or index.md.
- PRD and TASKPRD content cannot be replaced via respec_update_artifact;
  use the lifecycle tools for them.
- Always finalize drafts through respec_finalize so the ledger stays
  consistent.`
}
