package input

import (
	"github.com/tsinghua-fib-lab/tilesim/utils/geometry"
)

// MapDescription 路网描述
// 功能：外部地图编辑工具产出的静态路网数据，包括瓦片网格与各瓦片内登记的停车线、转弯、出生点，
// 以及全局的信号灯与消失线
// 说明：坐标为屏幕像素坐标（y向下），角度为度
type MapDescription struct {
	Name          string                    `yaml:"name,omitempty" bson:"name"`
	TileSize      float64                   `yaml:"tile_size" bson:"tile_size"` // 瓦片边长（像素）
	Rows          int32                     `yaml:"rows" bson:"rows"`
	Columns       int32                     `yaml:"columns" bson:"columns"`
	Tiles         []TileDescription         `yaml:"tiles,omitempty" bson:"tiles"`
	TrafficLights []TrafficLightDescription `yaml:"traffic_lights,omitempty" bson:"traffic_lights"`
	Despawns      []DespawnDescription      `yaml:"despawns,omitempty" bson:"despawns"`
}

// TileDescription 单个瓦片中登记的元素，未列出的瓦片视为空
type TileDescription struct {
	Row    int32              `yaml:"row" bson:"row"`
	Col    int32              `yaml:"col" bson:"col"`
	Stops  []StopDescription  `yaml:"stops,omitempty" bson:"stops"`
	Turns  []TurnDescription  `yaml:"turns,omitempty" bson:"turns"`
	Spawns []SpawnDescription `yaml:"spawns,omitempty" bson:"spawns"`
}

type StopDescription struct {
	Start        geometry.Point `yaml:"start" bson:"start"`
	End          geometry.Point `yaml:"end" bson:"end"`
	TrafficLight int32          `yaml:"traffic_light" bson:"traffic_light"`
}

// TurnDescription 环形扇区转弯区，从FirstAngle逆时针到SecondAngle
type TurnDescription struct {
	Center      geometry.Point `yaml:"center" bson:"center"`
	MinDistance float64        `yaml:"min_distance" bson:"min_distance"`
	MaxDistance float64        `yaml:"max_distance" bson:"max_distance"`
	FirstAngle  float64        `yaml:"first_angle" bson:"first_angle"`
	SecondAngle float64        `yaml:"second_angle" bson:"second_angle"`
	CanSkip     bool           `yaml:"can_skip,omitempty" bson:"can_skip"`
}

type SpawnDescription struct {
	Position    geometry.Point `yaml:"position" bson:"position"`
	Angle       float64        `yaml:"angle" bson:"angle"`             // 出生朝向（度）
	Speed       float64        `yaml:"speed" bson:"speed"`             // 初速度占车型最高速度的比例
	Probability float64        `yaml:"probability" bson:"probability"` // 每秒出生概率
}

type TrafficLightDescription struct {
	ID            int32          `yaml:"id" bson:"id"`
	Position      geometry.Point `yaml:"position,omitempty" bson:"position"`
	TimeRed       float64        `yaml:"time_red" bson:"time_red"`     // 秒
	TimeAmber     float64        `yaml:"time_amber" bson:"time_amber"` // 秒
	TimeGreen     float64        `yaml:"time_green" bson:"time_green"` // 秒
	DefaultColor  string         `yaml:"default_color" bson:"default_color"`
	DefaultTimeIn float64        `yaml:"default_time_in,omitempty" bson:"default_time_in"` // 初始已持续时间（秒）
}

type DespawnDescription struct {
	Start geometry.Point `yaml:"start" bson:"start"`
	End   geometry.Point `yaml:"end" bson:"end"`
}
