package ui

import (
	"github.com/desertthunder/sptdl/internal/models"
	"github.com/desertthunder/sptdl/internal/tasks"
)

type tracksResolvedMsg struct {
	tracks []models.Track
	err    error
}

type progressUpdateMsg tasks.ProgressUpdate

type downloadCompleteMsg struct {
	result *tasks.RunResult
}
