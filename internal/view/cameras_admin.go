// CrowdSafe - Crowd Safety Video Analytics Monitoring Client
// Copyright 2026 CrowdSafe Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LuciferDono/CrowdSafe

/*
cameras_admin.go - Camera administration controller

CRUD over the camera fleet. Create requests are validated client-side
before they are issued; the backend repeats the checks and its error
message wins when they disagree. Server rejections surface as notices
and leave the form state untouched so the operator can correct and
resubmit.
*/

package view

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/LuciferDono/CrowdSafe/internal/models"
	"github.com/LuciferDono/CrowdSafe/internal/realtime"
	"github.com/LuciferDono/CrowdSafe/internal/transport"
)

// CameraRow is one rendered fleet table row.
type CameraRow struct {
	ID       string
	Name     string
	Location string
	AreaSqm  string
	Capacity string
	Status   string
}

// CamerasAdmin drives the camera management view.
type CamerasAdmin struct {
	client   *transport.Client
	notifier Notifier

	mu      sync.RWMutex
	cameras []models.Camera
}

// NewCamerasAdmin creates the camera admin controller.
func NewCamerasAdmin(client *transport.Client, notifier Notifier) *CamerasAdmin {
	return &CamerasAdmin{client: client, notifier: notifier}
}

// Bind refreshes the fleet list when a camera's processing state
// changes, keeping derived statuses current without polling.
func (c *CamerasAdmin) Bind(ch *realtime.Channel, refresh func()) {
	ch.On(realtime.EventCameraStatus, func(json.RawMessage) { refresh() })
}

// Load fetches the fleet.
func (c *CamerasAdmin) Load(ctx context.Context) error {
	cameras, err := c.client.Cameras(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.cameras = cameras
	c.mu.Unlock()
	return nil
}

// Create validates and submits a new camera. Validation failures and
// server rejections both surface as notices; the caller keeps the form
// editable either way.
func (c *CamerasAdmin) Create(ctx context.Context, req models.CreateCameraRequest) (*models.Camera, error) {
	if err := validate.Struct(req); err != nil {
		c.notifier.Notice("Invalid camera: " + validationMessage(err))
		return nil, err
	}

	cam, err := c.client.CreateCamera(ctx, req)
	if err != nil {
		c.notifier.Notice("Failed to create camera: " + serverMessage(err))
		return nil, err
	}

	c.mu.Lock()
	c.cameras = append(c.cameras, *cam)
	c.mu.Unlock()
	c.notifier.Toast("success", "Camera "+cam.Name+" created")
	return cam, nil
}

// Start begins processing on a camera.
func (c *CamerasAdmin) Start(ctx context.Context, id string) error {
	if err := c.client.StartCamera(ctx, id); err != nil {
		c.notifier.Notice("Failed to start camera: " + serverMessage(err))
		return err
	}
	c.setProcessing(id, true)
	c.notifier.Toast("success", "Camera started")
	return nil
}

// Stop halts processing on a camera.
func (c *CamerasAdmin) Stop(ctx context.Context, id string) error {
	resp, err := c.client.StopCamera(ctx, id)
	if err != nil {
		c.notifier.Notice("Failed to stop camera: " + serverMessage(err))
		return err
	}
	c.setProcessing(id, false)
	if resp.RecordingID != "" {
		c.notifier.Toast("success", fmt.Sprintf("Camera stopped, recording %s saved", resp.RecordingID))
	} else {
		c.notifier.Toast("success", "Camera stopped")
	}
	return nil
}

// Delete removes a camera and all its recorded data.
func (c *CamerasAdmin) Delete(ctx context.Context, id string) error {
	if err := c.client.DeleteCamera(ctx, id); err != nil {
		c.notifier.Notice("Failed to delete camera: " + serverMessage(err))
		return err
	}

	c.mu.Lock()
	kept := c.cameras[:0]
	for _, cam := range c.cameras {
		if cam.ID != id {
			kept = append(kept, cam)
		}
	}
	c.cameras = kept
	c.mu.Unlock()
	c.notifier.Toast("success", "Camera deleted")
	return nil
}

// Upload streams a video source file to a camera, reporting progress
// through the notifier at completion.
func (c *CamerasAdmin) Upload(ctx context.Context, id, filePath string, progress transport.ProgressFunc) error {
	if err := c.client.UploadCameraVideo(ctx, id, filePath, progress); err != nil {
		c.notifier.Notice("Upload failed: " + serverMessage(err))
		return err
	}
	c.notifier.Toast("success", "Video uploaded")
	return nil
}

// setProcessing updates one camera's local processing flag.
func (c *CamerasAdmin) setProcessing(id string, processing bool) {
	c.mu.Lock()
	for i := range c.cameras {
		if c.cameras[i].ID == id {
			c.cameras[i].IsProcessing = processing
		}
	}
	c.mu.Unlock()
}

// Rows projects the fleet into table rows with a derived status:
// Processing while live, Ready with a source attached, No Source
// otherwise.
func (c *CamerasAdmin) Rows() []CameraRow {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rows := make([]CameraRow, len(c.cameras))
	for i, cam := range c.cameras {
		rows[i] = CameraRow{
			ID:       cam.ID,
			Name:     cam.Name,
			Location: cam.Location,
			AreaSqm:  FormatFloat(cam.AreaSqm),
			Capacity: fmt.Sprintf("%d", cam.ExpectedCapacity),
			Status:   cameraStatus(cam),
		}
	}
	return rows
}

// cameraStatus derives the display status for the admin table.
func cameraStatus(cam models.Camera) string {
	switch {
	case cam.IsProcessing:
		return "Processing"
	case cam.SourceURL != "":
		return "Ready"
	default:
		return "No Source"
	}
}

// serverMessage extracts the backend's error message when the failure
// carries one, falling back to the raw error text.
func serverMessage(err error) string {
	var apiErr *transport.APIStatusError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// validationMessage flattens validator output into one line the
// notifier can display, naming the first failing field.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fmt.Sprintf("%s fails %s validation", verrs[0].Field(), verrs[0].Tag())
	}
	return err.Error()
}
