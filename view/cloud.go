/*
 * Copyright 2025 tomoncle.
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

package view

import (
	"math"
	"strconv"

	"github.com/tomoncle/ormcms/content"
)

const DefaultCloudSteps = 10

// CloudWeighter is implemented by entries shown in a cloud, such as
// taxonomy terms weighted by their usage.
type CloudWeighter interface {
	CloudWeight() int
}

// WeightedContent is a cloud item.
type WeightedContent struct {
	*content.Content
	Weight      int
	WeightClass string
}

// CloudWeights weights the content whose data implements CloudWeighter,
// other content is dropped. Classes run from weight-0 to weight-<steps>.
func CloudWeights(result []*content.Content, steps int) []*WeightedContent {
	weighted := make([]*WeightedContent, 0, len(result))
	minWeight, maxWeight := math.MaxInt, math.MinInt
	for _, c := range result {
		weighter, ok := c.Data.(CloudWeighter)
		if !ok {
			continue
		}
		w := weighter.CloudWeight()
		minWeight, maxWeight = min(minWeight, w), max(maxWeight, w)
		weighted = append(weighted, &WeightedContent{Content: c, Weight: w})
	}
	for _, c := range weighted {
		c.WeightClass = WeightClass(c.Weight, minWeight, maxWeight, steps)
	}
	return weighted
}

// WeightClass returns weight-ceil((weight-min)/ceil((max-min)/steps)). All
// weights fall in class 0 when they are equal.
func WeightClass(weight, minimum, maximum, steps int) string {
	if steps <= 0 {
		steps = DefaultCloudSteps
	}
	step := math.Ceil(float64(maximum-minimum) / float64(steps))
	class := 0
	if step > 0 {
		class = int(math.Ceil(float64(weight-minimum) / step))
	}
	return "weight-" + strconv.Itoa(class)
}

// ApplyCloudWeights sets the cloud variable of v to the weighted result.
func ApplyCloudWeights(v *TemplateView, steps int) {
	result := v.Result()
	if len(result) == 0 {
		return
	}
	v.Set("cloud", CloudWeights(result, steps))
}
