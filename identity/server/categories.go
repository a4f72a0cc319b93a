package server

import "github.com/wricardo/emoji-maze-quest/identity"

// DefaultCategories is the emoji catalogue codes are drawn from: one pick per
// category gives 10^4 distinct codes.
func DefaultCategories() identity.Categories {
	return identity.Categories{
		Labels: []string{"Animals", "Food", "Nature", "Things"},
		Categories: [][]identity.CategoryItem{
			{
				{Emoji: "🐱", Slug: "cat"}, {Emoji: "🐶", Slug: "dog"}, {Emoji: "🦊", Slug: "fox"},
				{Emoji: "🐸", Slug: "frog"}, {Emoji: "🐼", Slug: "panda"}, {Emoji: "🦁", Slug: "lion"},
				{Emoji: "🐢", Slug: "turtle"}, {Emoji: "🐙", Slug: "octopus"}, {Emoji: "🦉", Slug: "owl"},
				{Emoji: "🐝", Slug: "bee"},
			},
			{
				{Emoji: "🍎", Slug: "apple"}, {Emoji: "🍌", Slug: "banana"}, {Emoji: "🍕", Slug: "pizza"},
				{Emoji: "🍪", Slug: "cookie"}, {Emoji: "🧀", Slug: "cheese"}, {Emoji: "🍓", Slug: "strawberry"},
				{Emoji: "🥕", Slug: "carrot"}, {Emoji: "🍩", Slug: "donut"}, {Emoji: "🍇", Slug: "grapes"},
				{Emoji: "🌽", Slug: "corn"},
			},
			{
				{Emoji: "☀️", Slug: "sun"}, {Emoji: "🌙", Slug: "moon"}, {Emoji: "⭐", Slug: "star"},
				{Emoji: "🌈", Slug: "rainbow"}, {Emoji: "🌵", Slug: "cactus"}, {Emoji: "🌸", Slug: "flower"},
				{Emoji: "🍄", Slug: "mushroom"}, {Emoji: "🌊", Slug: "wave"}, {Emoji: "❄️", Slug: "snowflake"},
				{Emoji: "🔥", Slug: "fire"},
			},
			{
				{Emoji: "🚗", Slug: "car"}, {Emoji: "🚀", Slug: "rocket"}, {Emoji: "⚽", Slug: "ball"},
				{Emoji: "🎈", Slug: "balloon"}, {Emoji: "🎸", Slug: "guitar"}, {Emoji: "📚", Slug: "books"},
				{Emoji: "🔑", Slug: "key"}, {Emoji: "⏰", Slug: "clock"}, {Emoji: "🎁", Slug: "gift"},
				{Emoji: "🪁", Slug: "kite"},
			},
		},
	}
}
