package config

// InputPath 指定路网描述数据来源的配置（MongoDB、文件系统）
// 说明：File非空时优先从文件读取，否则从MongoDB的{DB}.{Col}中读取名为Name的文档
type InputPath struct {
	DB   string `yaml:"db,omitempty"`   // 数据库名
	Col  string `yaml:"col,omitempty"`  // 集合名
	Name string `yaml:"name,omitempty"` // 文档名（对应文档的name字段）
	File string `yaml:"file,omitempty"` // 文件路径（优先级高于MongoDB），支持yaml与json
}

// GetDb 数据库名
func (p InputPath) GetDb() string {
	return p.DB
}

// GetColl 集合名
func (p InputPath) GetColl() string {
	return p.Col
}

// Input 指定模拟器所有输入数据的配置项
type Input struct {
	URI string    `yaml:"uri,omitempty"` // MongoDB连接字符串
	Map InputPath `yaml:"map"`           // 路网
}

// ControlStep 指定模拟器模拟时间范围和间隔的配置项
type ControlStep struct {
	Start    int32   `yaml:"start"`    // 开始步数
	Total    int32   `yaml:"total"`    // 总步数，实时模式下为0表示不限
	Interval float64 `yaml:"interval"` // 每步的时间间隔（秒）
}

// Control 模拟器控制配置
type Control struct {
	Step           ControlStep `yaml:"step"`
	Realtime       bool        `yaml:"realtime,omitempty"`        // 按墙上时钟推进，每步dt为实际经过的时间
	TimeMultiplier *float64    `yaml:"time_multiplier,omitempty"` // 时间倍率，缺省为1，0表示暂停
	JumpThreshold  float64     `yaml:"jump_threshold,omitempty"`  // 单帧实际耗时超过该值（秒）时本帧dt记为0
	MaxVehicles    *int        `yaml:"max_vehicles,omitempty"`    // 同时存在的车辆数上限，缺省为50，0表示不限
	Seed           uint64      `yaml:"seed,omitempty"`            // 随机数种子
}

// Behavior 车辆行为配置
// 说明：取代全局开关，随仿真上下文传递给车辆
type Behavior struct {
	Braking                *bool   `yaml:"braking,omitempty"`                  // 是否启用停车线制动
	Turning                *bool   `yaml:"turning,omitempty"`                  // 是否启用转弯
	ObservationDistance    float64 `yaml:"observation_distance,omitempty"`     // 前向观测距离（米）
	DetectionRange         float64 `yaml:"detection_range,omitempty"`          // 观测路径两侧的检测容差（米）
	StopMargin             float64 `yaml:"stop_margin,omitempty"`              // 停车线制动余量（米）
	SafetyMargin           float64 `yaml:"safety_margin,omitempty"`            // 跟车制动余量（米）
	TurnAngleTolerance     float64 `yaml:"turn_angle_tolerance,omitempty"`     // 进入转弯判定的角度容差（度）
	TurnCollisionTolerance float64 `yaml:"turn_collision_tolerance,omitempty"` // 最近转弯聚类的距离容差（像素）
	BoundsTolerance        float64 `yaml:"bounds_tolerance,omitempty"`         // 地图x方向越界容差（像素）
}

// Recorder 运行记录输出配置
type Recorder struct {
	Driver        string `yaml:"driver,omitempty"`         // sqlite、postgres，为空则不记录
	DSN           string `yaml:"dsn,omitempty"`            // 连接串，sqlite下为文件路径，为空则使用内存数据库
	FlushInterval int32  `yaml:"flush_interval,omitempty"` // 写库间隔步数
}

// Output 输出配置
type Output struct {
	Recorder Recorder `yaml:"recorder,omitempty"`
	Metrics  bool     `yaml:"metrics,omitempty"` // 是否创建otel指标
}

// Config YAML配置文件的根结构
type Config struct {
	Input    Input    `yaml:"input"`              // 输入
	Control  Control  `yaml:"control"`            // 模拟过程控制
	Behavior Behavior `yaml:"behavior,omitempty"` // 车辆行为
	Output   Output   `yaml:"output,omitempty"`   // 输出
}
