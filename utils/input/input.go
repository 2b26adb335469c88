package input

import (
	"context"
	"errors"
	"fmt"
	"os"

	"git.fiblab.net/general/common/v2/mongoutil"
	"github.com/tsinghua-fib-lab/tilesim/utils/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"gopkg.in/yaml.v2"
)

var (
	ErrNoInput            = errors.New("no map input configured")
	ErrInvalidDescription = errors.New("invalid map description")
)

// Input 输入数据
type Input struct {
	Map *MapDescription
}

// Init 加载仿真所需的所有输入数据
// 功能：根据配置从文件或MongoDB读取路网描述
// 参数：ctx-上下文，c-输入配置
// 返回：输入数据；任一步骤失败时返回带有来源信息的错误
// 算法说明：
// 1. 配置了文件路径时从文件读取并严格解析（yaml或json）
// 2. 否则配置了URI时连接MongoDB（连接失败时panic），从{db}.{col}读取文档
// 3. 检查网格尺寸等必需字段
func Init(ctx context.Context, c config.Input) (*Input, error) {
	var (
		m   *MapDescription
		err error
	)
	switch {
	case c.Map.File != "":
		m, err = LoadFile(c.Map.File)
	case c.URI != "":
		client := mongoutil.NewClient(c.URI)
		defer client.Disconnect(context.Background())
		m, err = LoadMongo(ctx, client, c.Map)
	default:
		return nil, ErrNoInput
	}
	if err != nil {
		return nil, err
	}
	log.Infof("map %q: %dx%d tiles of %.1f px, %d catalogued tiles, %d traffic lights, %d despawns",
		m.Name, m.Rows, m.Columns, m.TileSize, len(m.Tiles), len(m.TrafficLights), len(m.Despawns))
	return &Input{Map: m}, nil
}

// LoadFile 从文件加载路网描述
func LoadFile(path string) (*MapDescription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read map file %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("map file %s: %w", path, err)
	}
	return m, nil
}

// Parse 严格解析路网描述
// 说明：缺省的元素列表视为空列表；未知字段、类型错误等解析失败原样返回
func Parse(data []byte) (*MapDescription, error) {
	var m MapDescription
	if err := yaml.UnmarshalStrict(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse map description: %w", err)
	}
	if err := validate(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadMongo 从MongoDB加载路网描述，Name非空时按name字段筛选
func LoadMongo(ctx context.Context, client *mongo.Client, p config.InputPath) (*MapDescription, error) {
	filter := bson.M{}
	if p.Name != "" {
		filter["name"] = p.Name
	}
	log.Infof("start fetching from %s.%s", p.DB, p.Col)
	var m MapDescription
	if err := mongoutil.GetMongoColl(client, p).FindOne(ctx, filter).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("no map %q in %s.%s: %w", p.Name, p.DB, p.Col, err)
		}
		return nil, fmt.Errorf("failed to download map from %s.%s: %w", p.DB, p.Col, err)
	}
	log.Infof("finish fetching from %s.%s", p.DB, p.Col)
	if err := validate(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

func validate(m *MapDescription) error {
	if m.TileSize <= 0 {
		return fmt.Errorf("%w: tile_size must be positive, got %v", ErrInvalidDescription, m.TileSize)
	}
	if m.Rows <= 0 || m.Columns <= 0 {
		return fmt.Errorf("%w: grid must have at least one tile, got %dx%d", ErrInvalidDescription, m.Rows, m.Columns)
	}
	seen := make(map[[2]int32]struct{}, len(m.Tiles))
	for _, t := range m.Tiles {
		if t.Row < 0 || t.Row >= m.Rows || t.Col < 0 || t.Col >= m.Columns {
			return fmt.Errorf("%w: tile (%d,%d) outside %dx%d grid", ErrInvalidDescription, t.Row, t.Col, m.Rows, m.Columns)
		}
		key := [2]int32{t.Row, t.Col}
		if _, ok := seen[key]; ok {
			return fmt.Errorf("%w: tile (%d,%d) catalogued twice", ErrInvalidDescription, t.Row, t.Col)
		}
		seen[key] = struct{}{}
	}
	return nil
}
