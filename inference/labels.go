// SPDX-License-Identifier: EPL-2.0

package inference

import "slices"

// NumClasses is the width of every model's output distribution.
const NumClasses = 10

// labels is the UrbanSound8K class vocabulary in model output order.
var labels = [NumClasses]string{
	"air_conditioner",
	"car_horn",
	"children_playing",
	"dog_bark",
	"drilling",
	"engine_idling",
	"gun_shot",
	"jackhammer",
	"siren",
	"street_music",
}

// Labels returns a copy of the class vocabulary in model output order.
func Labels() []string { return slices.Clone(labels[:]) }

// Label returns the class name at output index i.
func Label(i int) string { return labels[i] }
