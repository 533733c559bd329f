/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

//go:generate mockgen -destination=mock_gateway.go -package=gateway github.com/carverauto/chemvis/pkg/gateway HTTPClient

package gateway

import (
	"io"
	"net/http"

	"github.com/carverauto/chemvis/pkg/ingest"
	"github.com/carverauto/chemvis/pkg/models"
)

// HTTPClient is the subset of *http.Client used by the gateway.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DemoSource serves data while the backend is unreachable.
type DemoSource interface {
	Snapshot() ingest.Snapshot
	Ingest(filename string, r io.Reader) (models.UploadResult, error)
}
