package main

import (
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mindfulpath/internal/config"
	"github.com/mindfulpath/internal/db"
)

const seedVisitsPerBlog = 12

var seedDevices = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/124.0",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) Mobile/15E148",
}

// 测试数据生成器
func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	dsn := cfg.DatabasePath
	if cfg.DatabaseDriver == "postgres" {
		dsn = cfg.DatabaseURL
	}
	if err := db.Init(cfg.DatabaseDriver, dsn, nil); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成测试数据...")

	admin, reader := createTestUsers()
	categories := createTestCategories()
	blogs := createTestBlogs(admin, categories)
	createTestVisits(blogs, reader, time.Now().UTC())
	createTestSubscribers(reader)

	fmt.Println("测试数据生成完成！")
	fmt.Println("管理员: admin@mindfulpath.dev (密码: admin123)")
	fmt.Println("读者: reader@mindfulpath.dev (密码: reader123)")
	fmt.Printf("文章: %d 篇，每篇 %d 条浏览记录\n", len(blogs), seedVisitsPerBlog)
}

// 创建测试用户，已存在时直接复用
func createTestUsers() (db.User, db.User) {
	admin := ensureUser("admin", "admin@mindfulpath.dev", "admin123", true)
	reader := ensureUser("reader", "reader@mindfulpath.dev", "reader123", false)
	fmt.Println("✅ 测试用户就绪")
	return admin, reader
}

func ensureUser(username, email, password string, isAdmin bool) db.User {
	var user db.User
	if err := db.DB.Where("email = ?", email).First(&user).Error; err == nil {
		return user
	}
	hashed, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	user = db.User{
		Username:   username,
		Email:      email,
		Password:   string(hashed),
		ProfilePic: db.DefaultProfilePic,
		IsAdmin:    isAdmin,
	}
	if err := db.DB.Create(&user).Error; err != nil {
		log.Printf("创建用户 %s 失败: %v", username, err)
	}
	return user
}

// 创建测试分类及子分类
func createTestCategories() []db.Category {
	var count int64
	db.DB.Model(&db.Category{}).Count(&count)
	if count > 0 {
		fmt.Println("分类已存在，跳过创建")
		var existing []db.Category
		db.DB.Preload("Subcategories").Order("id").Find(&existing)
		return existing
	}

	seeds := []struct {
		name          string
		description   string
		subcategories []string
	}{
		{"Meditation", "Guided practices for a quieter mind", []string{"Breathing", "Body Scan"}},
		{"Mental Health", "Understanding anxiety, stress and resilience", []string{"Anxiety", "Sleep"}},
		{"Yoga", "Movement for mind and body", nil},
	}

	categories := make([]db.Category, 0, len(seeds))
	for _, seed := range seeds {
		category := db.Category{
			Name:          seed.name,
			Description:   seed.description,
			CategoryImage: db.DefaultCategoryImage,
		}
		for _, sub := range seed.subcategories {
			category.Subcategories = append(category.Subcategories, db.Subcategory{Name: sub})
		}
		if err := db.DB.Create(&category).Error; err != nil {
			log.Printf("创建分类 %s 失败: %v", seed.name, err)
			continue
		}
		categories = append(categories, category)
	}

	fmt.Println("✅ 测试分类创建完成")
	return categories
}

// 创建测试文章，会清理旧文章及其评论
func createTestBlogs(author db.User, categories []db.Category) []db.Blog {
	if len(categories) == 0 {
		return nil
	}
	db.DB.Exec("DELETE FROM blog_likes")
	db.DB.Exec("DELETE FROM blog_bookmarks")
	db.DB.Exec("DELETE FROM comments")
	db.DB.Exec("DELETE FROM visit_records")
	db.DB.Exec("DELETE FROM blogs")

	contents := []struct {
		title    string
		content  string
		tags     []string
		language string
		live     bool
	}{
		{
			title:    "A Five Minute Breathing Practice",
			content:  "## Start here\n\nSit comfortably and breathe in for four counts, hold for four, and breathe out for six.\n\n- Repeat ten times\n- Notice the pause between breaths",
			tags:     []string{"breathing", "beginner"},
			language: db.LanguageEnglish,
			live:     true,
		},
		{
			title:    "Why Sleep Shapes Your Mood",
			content:  "Poor sleep amplifies stress responses. A steady wind-down routine helps the body recognise when rest is coming.",
			tags:     []string{"sleep", "stress"},
			language: db.LanguageEnglish,
			live:     true,
		},
		{
			title:    "ध्यान की शुरुआत",
			content:  "हर दिन पाँच मिनट शांत बैठें और अपनी साँसों पर ध्यान दें।",
			tags:     []string{"meditation"},
			language: db.LanguageHindi,
			live:     true,
		},
		{
			title:    "Morning Yoga Flow (draft)",
			content:  "Work in progress: a gentle sequence to wake up the spine.",
			tags:     []string{"yoga"},
			language: db.LanguageEnglish,
			live:     false,
		},
	}

	blogs := make([]db.Blog, 0, len(contents))
	for i, item := range contents {
		category := categories[i%len(categories)]
		blog := db.Blog{
			Title:      item.title,
			Content:    item.content,
			Tags:       db.JoinTags(item.tags),
			Language:   item.language,
			CategoryID: category.ID,
			Thumbnail:  db.DefaultCategoryImage,
			AuthorID:   author.ID,
			IsLive:     item.live,
		}
		if len(category.Subcategories) > 0 {
			blog.SubcategoryID = &category.Subcategories[0].ID
		}
		if err := db.DB.Create(&blog).Error; err != nil {
			log.Printf("创建文章失败: %v", err)
			continue
		}
		blogs = append(blogs, blog)
	}

	fmt.Println("✅ 测试文章创建完成")
	return blogs
}

// 为每篇文章生成浏览记录，时长覆盖阈值上下，最后一条保持打开状态
func createTestVisits(blogs []db.Blog, reader db.User, now time.Time) {
	for _, blog := range blogs {
		for i := 0; i < seedVisitsPerBlog; i++ {
			start := now.Add(-time.Duration(i+1) * time.Hour)
			visit := db.VisitRecord{
				SessionID:  fmt.Sprintf("seed-%d-%d", blog.ID, i),
				Page:       fmt.Sprintf("/blog/%d", blog.ID),
				BlogID:     blog.ID,
				VisitTime:  start,
				DeviceInfo: seedDevices[i%len(seedDevices)],
			}
			if i%3 == 0 {
				visit.UserID = &reader.ID
			}
			if i < seedVisitsPerBlog-1 {
				duration := float64(5 + i*7)
				exit := start.Add(time.Duration(duration * float64(time.Second)))
				visit.ExitTime = &exit
				visit.Duration = &duration
			}
			if err := db.DB.Create(&visit).Error; err != nil {
				log.Printf("创建浏览记录失败: %v", err)
			}
		}
	}
	fmt.Println("✅ 测试浏览记录创建完成")
}

// 让读者订阅通讯
func createTestSubscribers(reader db.User) {
	var count int64
	db.DB.Model(&db.Newsletter{}).Where("email = ?", reader.Email).Count(&count)
	if count > 0 {
		return
	}
	if err := db.DB.Create(&db.Newsletter{Email: reader.Email}).Error; err != nil {
		log.Printf("创建订阅失败: %v", err)
		return
	}
	fmt.Println("✅ 测试订阅创建完成")
}
