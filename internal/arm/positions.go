package arm

import "github.com/projectlend/lend/internal/vision"

// Pose is one position per servo (units 0-1000), servos 1-6.
// Values come from the calibration tool; re-record after remounting the arm.
type Pose [6]int

// Safe resting position.
var Home = Pose{500, 500, 500, 500, 500, 500}

// Donation zone where items are placed.
var Pickup = Pose{500, 620, 780, 540, 500, 500}

// Bin positions.
var (
	BinFruit = Pose{500, 620, 780, 540, 500, 120}
	BinSnack = Pose{500, 620, 780, 540, 500, 500}
	BinDrink = Pose{500, 620, 780, 540, 500, 880}
)

// CategoryPoses maps classification categories to bin poses.
// Loaded once, read-only for the process lifetime.
var CategoryPoses = map[vision.Category]Pose{
	vision.CategoryFruit: BinFruit,
	vision.CategorySnack: BinSnack,
	vision.CategoryDrink: BinDrink,
}
