package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	RoleTDEIAdmin             = "tdei_admin"
	RolePOC                   = "poc"
	RolePathwaysDataGenerator = "pathways_data_generator"
)

// UploadRoles may submit pathways data; holding any one of them is enough.
var UploadRoles = []string{RoleTDEIAdmin, RolePOC, RolePathwaysDataGenerator}

type PermissionRequest struct {
	UserID           string
	ProjectGroupID   string
	Permissions      []string
	ShouldSatisfyAll bool
}

// PermissionClient asks the permission authority whether a user holds roles in a project group.
type PermissionClient struct {
	httpClient *http.Client
	url        string
	logger     *slog.Logger
}

func NewPermissionClient(permissionURL string, httpClient *http.Client, logger *slog.Logger) *PermissionClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &PermissionClient{
		httpClient: httpClient,
		url:        permissionURL,
		logger:     logger.With("module", "permission_client"),
	}
}

// HasPermission returns the authority's answer. Any transport or protocol failure is an error,
// which callers treat as a denial.
func (c *PermissionClient) HasPermission(ctx context.Context, request PermissionRequest) (bool, error) {
	params := url.Values{}
	params.Set("userId", request.UserID)
	params.Set("projectGroupId", request.ProjectGroupID)
	params.Set("affirmative", strconv.FormatBool(request.ShouldSatisfyAll))

	for _, permission := range request.Permissions {
		params.Add("permissions", permission)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"?"+params.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("failed to build permission request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("permission request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("permission service returned status %d", resp.StatusCode)
	}

	var granted bool

	err = json.NewDecoder(resp.Body).Decode(&granted)
	if err != nil {
		return false, fmt.Errorf("failed to decode permission response: %w", err)
	}

	c.logger.DebugContext(ctx, "permission checked",
		"user_id", request.UserID, "project_group_id", request.ProjectGroupID, "granted", granted)

	return granted, nil
}

// CanUpload checks that userID holds any upload role in projectGroupID.
func (c *PermissionClient) CanUpload(ctx context.Context, userID, projectGroupID string) (bool, error) {
	return c.HasPermission(ctx, PermissionRequest{
		UserID:         userID,
		ProjectGroupID: projectGroupID,
		Permissions:    UploadRoles,
	})
}
