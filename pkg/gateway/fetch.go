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

package gateway

import (
	"context"

	"github.com/carverauto/chemvis/pkg/models"
	"golang.org/x/sync/errgroup"
)

// Dataset is the result of one fetch cycle.
type Dataset struct {
	Summary   models.SummaryStats
	Equipment []models.EquipmentItem
	History   []models.HistoryEntry
	Mode      Mode
}

// FetchAll reads summary, equipment and history concurrently and waits for
// all three. The cycle is live only when every resource was served by the
// backend; otherwise all three values come from the local dataset so the
// result never mixes sources. The global mode is set once, after the join.
func (c *Client) FetchAll(ctx context.Context) Dataset {
	var (
		live Dataset
		g    errgroup.Group
	)

	g.Go(func() error {
		err := c.getJSON(ctx, "/summary/", &live.Summary)
		c.mode.Record(ResourceSummary, err)

		return err
	})

	g.Go(func() error {
		err := c.getJSON(ctx, "/equipment/", &live.Equipment)
		c.mode.Record(ResourceEquipment, err)

		return err
	})

	g.Go(func() error {
		err := c.getJSON(ctx, "/history/", &live.History)
		c.mode.Record(ResourceHistory, err)

		return err
	})

	if err := g.Wait(); err != nil {
		c.logFailure("all", err)
		c.mode.Set(ModeDemo)

		snap := c.demo.Snapshot()

		return Dataset{
			Summary:   snap.Summary,
			Equipment: snap.Equipment,
			History:   snap.History,
			Mode:      ModeDemo,
		}
	}

	if live.Summary.TypeDistribution == nil {
		live.Summary.TypeDistribution = map[string]int{}
	}

	c.mode.Set(ModeLive)
	live.Mode = ModeLive

	return live
}
