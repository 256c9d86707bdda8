package main

import "github.com/jward/slicer"

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIInit reports the database a command migrated.
type CLIInit struct {
	Driver   string `json:"driver"`
	Database string `json:"database"`
}

// CLILoad reports one loaded fact file.
type CLILoad struct {
	File      string `json:"file"`
	Projects  int    `json:"projects"`
	Files     int    `json:"files"`
	Entities  int    `json:"entities"`
	Relations int    `json:"relations"`
	Imports   int    `json:"imports"`
	Sources   int    `json:"sources_written,omitempty"`
}

// CLIEntity is a JSON-friendly entity representation.
type CLIEntity struct {
	ID        int64    `json:"id"`
	Kind      string   `json:"kind"`
	FQN       string   `json:"fqn"`
	Modifiers []string `json:"modifiers,omitempty"`
	ProjectID int64    `json:"project_id"`
	FileID    *int64   `json:"file_id,omitempty"`
	File      string   `json:"file,omitempty"`
	Offset    *int     `json:"offset,omitempty"`
	Length    *int     `json:"length,omitempty"`
}

// CLIFile is a JSON-friendly file representation.
type CLIFile struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Path      string `json:"path"`
}

// CLISlice reports one slicing operation.
type CLISlice struct {
	Seeds        []int64        `json:"seeds"`
	Summary      slicer.Summary `json:"summary"`
	Internal     []int64        `json:"internal"`
	External     []int64        `json:"external"`
	Archive      string         `json:"archive,omitempty"`
	ArchiveFiles int            `json:"archive_files,omitempty"`
}

// CLIMirror reports an upload of repository files to object storage.
type CLIMirror struct {
	Uploaded int      `json:"uploaded"`
	Missing  []string `json:"missing,omitempty"`
}
