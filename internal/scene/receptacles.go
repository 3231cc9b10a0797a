// File: internal/scene/receptacles.go

// Package scene holds scene-setup policy: which item types may be
// randomized into which receptacle types, how the RandomInitialize action
// is assembled, and how task-target receptacles get opened before a seeded
// search.
package scene

import "sort"

// ReceptacleObjects maps each receptacle type to the item types the
// randomizer may legally place inside it.
var ReceptacleObjects = map[string][]string{
	"Box":               {"Candle", "CellPhone", "Cloth", "CreditCard", "Dirt", "KeyChain", "Newspaper", "ScrubBrush", "SoapBar", "SoapBottle", "ToiletPaper"},
	"Cabinet":           {"Bowl", "BowlDirty", "Box", "Bread", "BreadSliced", "ButterKnife", "Candle", "CellPhone", "CoffeeMachine", "Container", "ContainerFull", "CreditCard", "Cup", "Fork", "KeyChain", "Knife", "Laptop", "Mug", "Newspaper", "Pan", "Plate", "Plunger", "Pot", "Potato", "Sandwich", "ScrubBrush", "SoapBar", "SoapBottle", "Spoon", "SprayBottle", "Statue", "TissueBox", "Toaster", "ToiletPaper", "WateringCan"},
	"CoffeeMachine":     {"Mug", "MugFilled"},
	"CounterTop":        {"Apple", "AppleSlice", "Bowl", "BowlDirty", "BowlFilled", "Box", "Bread", "BreadSliced", "ButterKnife", "Candle", "CellPhone", "CoffeeMachine", "Container", "ContainerFull", "CreditCard", "Cup", "Egg", "EggFried", "EggShell", "Fork", "HousePlant", "KeyChain", "Knife", "Laptop", "Lettuce", "LettuceSliced", "Microwave", "Mug", "MugFilled", "Newspaper", "Omelette", "Pan", "Plate", "Plunger", "Pot", "Potato", "PotatoSliced", "RemoteControl", "Sandwich", "ScrubBrush", "SoapBar", "SoapBottle", "Spoon", "SprayBottle", "Statue", "Television", "TissueBox", "Toaster", "ToiletPaper", "Tomato", "TomatoSliced", "WateringCan"},
	"Fridge":            {"Apple", "AppleSlice", "Bowl", "BowlDirty", "BowlFilled", "Bread", "BreadSliced", "Container", "ContainerFull", "Cup", "Egg", "EggFried", "EggShell", "Lettuce", "LettuceSliced", "Mug", "MugFilled", "Omelette", "Pan", "Plate", "Pot", "Potato", "PotatoSliced", "Sandwich", "Tomato", "TomatoSliced"},
	"GarbageCan":        {"Apple", "AppleSlice", "Box", "Bread", "BreadSliced", "Candle", "CellPhone", "CreditCard", "Egg", "EggFried", "EggShell", "LettuceSliced", "Newspaper", "Omelette", "Plunger", "Potato", "PotatoSliced", "Sandwich", "ScrubBrush", "SoapBar", "SoapBottle", "SprayBottle", "Statue", "ToiletPaper", "Tomato", "TomatoSliced"},
	"Microwave":         {"Bowl", "BowlDirty", "BowlFilled", "Bread", "BreadSliced", "Container", "ContainerFull", "Cup", "Egg", "EggFried", "Mug", "MugFilled", "Omelette", "Plate", "Potato", "PotatoSliced", "Sandwich"},
	"PaintingHanger":    {"Painting"},
	"Pan":               {"Apple", "AppleSlice", "EggFried", "Lettuce", "LettuceSliced", "Omelette", "Potato", "PotatoSliced", "Tomato", "TomatoSliced"},
	"Pot":               {"Apple", "AppleSlice", "EggFried", "Lettuce", "LettuceSliced", "Omelette", "Potato", "PotatoSliced", "Tomato", "TomatoSliced"},
	"Sink":              {"Apple", "AppleSlice", "Bowl", "BowlDirty", "BowlFilled", "ButterKnife", "Container", "ContainerFull", "Cup", "Egg", "EggFried", "EggShell", "Fork", "Knife", "Lettuce", "LettuceSliced", "Mug", "MugFilled", "Omelette", "Pan", "Plate", "Pot", "Potato", "PotatoSliced", "Sandwich", "ScrubBrush", "SoapBottle", "Spoon", "Tomato", "TomatoSliced", "WateringCan"},
	"StoveBurner":       {"EggFried", "Omelette", "Pan", "Pot"},
	"TableTop":          {"Apple", "AppleSlice", "Bowl", "BowlDirty", "BowlFilled", "Box", "Bread", "BreadSliced", "ButterKnife", "Candle", "CellPhone", "CoffeeMachine", "Container", "ContainerFull", "CreditCard", "Cup", "Egg", "EggFried", "EggShell", "Fork", "HousePlant", "KeyChain", "Knife", "Laptop", "Lettuce", "LettuceSliced", "Microwave", "Mug", "MugFilled", "Newspaper", "Omelette", "Pan", "Plate", "Plunger", "Pot", "Potato", "PotatoSliced", "RemoteControl", "Sandwich", "ScrubBrush", "SoapBar", "SoapBottle", "Spoon", "SprayBottle", "Statue", "Television", "TissueBox", "Toaster", "ToiletPaper", "Tomato", "TomatoSliced", "WateringCan"},
	"ToiletPaperHanger": {"ToiletPaper"},
	"TowelHolder":       {"Cloth"},
}

// receptacleTypes returns the table's keys in stable order so assembled
// actions are deterministic.
func receptacleTypes() []string {
	types := make([]string, 0, len(ReceptacleObjects))
	for t := range ReceptacleObjects {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
